package cmd

const (
	DefaultLogFile  = "ecr-cleanup.log"
	DefaultLogLevel = "info"
)
