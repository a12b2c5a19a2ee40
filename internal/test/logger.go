// Package test holds helpers shared by the package test suites.
package test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// NewTestLoggerContext returns ctx carrying a logger that writes every
// level to the GinkgoWriter, so log lines show up for failed specs.
func NewTestLoggerContext(ctx context.Context) context.Context {
	log := funcr.New(func(prefix, args string) {
		GinkgoWriter.Println(prefix, args)
	}, funcr.Options{Verbosity: 2})
	return logr.NewContext(ctx, log)
}
