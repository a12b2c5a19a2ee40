// Package prune deletes the images of a repository whose tag is not
// whitelisted, along with every untagged image.
package prune

import (
	"context"

	"github.com/go-logr/logr"

	cleanuperr "github.com/redhat-openshift-ecosystem/ecr-cleanup/errors"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/log"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/registry"
)

// TagSet answers whether a tag must be kept.
type TagSet interface {
	Has(tag string) bool
}

// BadImages returns the images to delete, as delete identifiers:
// untagged images by digest, and tagged images whose tag is not in keep by
// tag. Images with neither are logged and left alone.
func BadImages(ctx context.Context, images []registry.Image, keep TagSet) []registry.Image {
	logger := logr.FromContextOrDiscard(ctx)

	bad := []registry.Image{}
	for _, img := range images {
		switch {
		case img.IsBlank():
			logger.Info("found entirely blank image, skipping")
		case img.Tag == "":
			bad = append(bad, registry.Image{Digest: img.Digest})
		case !keep.Has(img.Tag):
			bad = append(bad, registry.Image{Tag: img.Tag})
		default:
			logger.V(log.TRC).Info("keeping image", "tag", img.Tag)
		}
	}
	return bad
}

// Result summarizes a prune.
type Result struct {
	Listed  int
	Blank   int
	Bad     []registry.Image
	Deleted *registry.DeleteResult
}

// Pruner removes non-whitelisted images through a registry client.
type Pruner struct {
	client registry.Client
}

func New(client registry.Client) *Pruner {
	return &Pruner{client: client}
}

// Prune lists repository, filters the images against keep and deletes the
// bad ones in a single batch call. When nothing is bad the registry is not
// asked to delete anything.
func (p *Pruner) Prune(ctx context.Context, repository string, keep TagSet) (*Result, error) {
	logger := logr.FromContextOrDiscard(ctx).WithValues("repository", repository)

	images, err := p.client.ListImages(ctx, repository)
	if err != nil {
		return nil, cleanuperr.Collaborator("list images", err)
	}

	result := &Result{Listed: len(images)}
	for _, img := range images {
		if img.IsBlank() {
			result.Blank++
		}
	}
	result.Bad = BadImages(ctx, images, keep)
	logger.Info("filtered images", "listed", result.Listed, "bad", len(result.Bad), "blank", result.Blank)

	if len(result.Bad) == 0 {
		logger.Info("nothing to delete")
		result.Deleted = &registry.DeleteResult{}
		return result, nil
	}

	for _, img := range result.Bad {
		logger.V(log.DBG).Info("deleting image", "image", img.String())
	}
	deleted, err := p.client.BatchDeleteImages(ctx, repository, result.Bad)
	if err != nil {
		return nil, cleanuperr.Collaborator("batch delete images", err)
	}
	result.Deleted = deleted

	for _, f := range deleted.Failures {
		logger.Info("registry refused to delete image", "image", f.Image.String(), "code", f.Code, "reason", f.Reason)
	}
	logger.Info("deleted images", "deleted", len(deleted.Deleted), "failed", len(deleted.Failures))
	return result, nil
}
