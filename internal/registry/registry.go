// Package registry describes the container registry collaborator and
// implements it for Amazon ECR.
package registry

import (
	"context"
	"fmt"
)

// Image identifies an image in a repository. An empty field is absent.
type Image struct {
	Tag    string `json:"imageTag,omitempty" xml:"tag,attr,omitempty"`
	Digest string `json:"imageDigest,omitempty" xml:"digest,attr,omitempty"`
}

// IsBlank reports whether the image carries neither a tag nor a digest.
func (i Image) IsBlank() bool {
	return i.Tag == "" && i.Digest == ""
}

func (i Image) String() string {
	switch {
	case i.Tag != "" && i.Digest != "":
		return fmt.Sprintf("%s@%s", i.Tag, i.Digest)
	case i.Tag != "":
		return i.Tag
	case i.Digest != "":
		return i.Digest
	default:
		return "<blank>"
	}
}

// Failure is an image the registry refused to delete.
type Failure struct {
	Image  Image  `json:"image" xml:"image"`
	Code   string `json:"code" xml:"code"`
	Reason string `json:"reason" xml:"reason"`
}

// DeleteResult is the registry's answer to a batch delete.
type DeleteResult struct {
	Deleted  []Image   `json:"deleted"`
	Failures []Failure `json:"failures,omitempty"`
}

// Client is the registry collaborator.
type Client interface {
	// ListImages returns every image of repository. Pagination is handled
	// by the implementation.
	ListImages(ctx context.Context, repository string) ([]Image, error)
	// BatchDeleteImages removes ids from repository. It is irreversible.
	BatchDeleteImages(ctx context.Context, repository string, ids []Image) (*DeleteResult, error)
}
