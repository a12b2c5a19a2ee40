package main

import (
	"log"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/cmd/ecr-cleanup/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
