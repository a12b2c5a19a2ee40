package prune

import (
	"bytes"
	"context"
	"errors"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	cleanuperr "github.com/redhat-openshift-ecosystem/ecr-cleanup/errors"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/log"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/registry"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/whitelist"
)

// memoryRegistry holds images in memory and removes them on delete.
type memoryRegistry struct {
	images    []registry.Image
	listErr   error
	deleteErr error

	deleteCalls [][]registry.Image
}

func (m *memoryRegistry) ListImages(ctx context.Context, repository string) ([]registry.Image, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]registry.Image{}, m.images...), nil
}

func (m *memoryRegistry) BatchDeleteImages(ctx context.Context, repository string, ids []registry.Image) (*registry.DeleteResult, error) {
	m.deleteCalls = append(m.deleteCalls, ids)
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	remove := func(img registry.Image) bool {
		for _, id := range ids {
			if (id.Tag != "" && id.Tag == img.Tag) || (id.Tag == "" && id.Digest != "" && img.Tag == "" && id.Digest == img.Digest) {
				return true
			}
		}
		return false
	}
	kept := []registry.Image{}
	for _, img := range m.images {
		if !remove(img) {
			kept = append(kept, img)
		}
	}
	m.images = kept
	return &registry.DeleteResult{Deleted: ids}, nil
}

var _ = Describe("Selecting bad images", func() {
	It("should keep whitelisted tags, drop the rest and skip blank images", func() {
		var buf bytes.Buffer
		ctx := logr.NewContext(context.TODO(), logr.New(log.NewBufferSink(&buf)))

		images := []registry.Image{
			{Tag: "latest-app"},
			{Tag: "dev-abc123-app"},
			{Digest: "sha256:zzz"},
			{},
		}
		bad := BadImages(ctx, images, whitelist.New("latest-app"))
		Expect(bad).To(Equal([]registry.Image{
			{Tag: "dev-abc123-app"},
			{Digest: "sha256:zzz"},
		}))
		Expect(buf.String()).To(ContainSubstring("found entirely blank image"))
	})

	It("should identify tagged images by tag only", func() {
		bad := BadImages(context.TODO(), []registry.Image{{Tag: "old", Digest: "sha256:1"}}, whitelist.New())
		Expect(bad).To(Equal([]registry.Image{{Tag: "old"}}))
	})

	It("should always select untagged images", func() {
		bad := BadImages(context.TODO(), []registry.Image{{Digest: "sha256:1"}}, whitelist.New("sha256:1"))
		Expect(bad).To(Equal([]registry.Image{{Digest: "sha256:1"}}))
	})

	It("should return an empty list when everything is kept", func() {
		bad := BadImages(context.TODO(), []registry.Image{{Tag: "latest-app"}, {}}, whitelist.New("latest-app"))
		Expect(bad).To(BeEmpty())
	})
})

var _ = Describe("Pruning a repository", func() {
	var (
		reg  *memoryRegistry
		keep whitelist.Whitelist
	)
	BeforeEach(func() {
		reg = &memoryRegistry{images: []registry.Image{
			{Tag: "latest-app", Digest: "sha256:a"},
			{Tag: "main-c1-app", Digest: "sha256:b"},
			{Tag: "main-old-app", Digest: "sha256:c"},
			{Digest: "sha256:d"},
			{},
		}}
		keep = whitelist.New("latest-app", "main-c1-app")
	})

	It("should pass exactly the filtered bad list to a single batch delete", func() {
		result, err := New(reg).Prune(context.TODO(), "platform", keep)
		Expect(err).ToNot(HaveOccurred())
		Expect(reg.deleteCalls).To(HaveLen(1))
		Expect(reg.deleteCalls[0]).To(Equal([]registry.Image{{Tag: "main-old-app"}, {Digest: "sha256:d"}}))
		Expect(reg.deleteCalls[0]).To(Equal(result.Bad))
		Expect(result.Listed).To(Equal(5))
		Expect(result.Blank).To(Equal(1))
		Expect(result.Deleted.Deleted).To(HaveLen(2))
	})

	It("should issue no delete on a second run against the pruned registry", func() {
		pruner := New(reg)
		_, err := pruner.Prune(context.TODO(), "platform", keep)
		Expect(err).ToNot(HaveOccurred())

		second, err := pruner.Prune(context.TODO(), "platform", keep)
		Expect(err).ToNot(HaveOccurred())
		Expect(second.Bad).To(BeEmpty())
		Expect(reg.deleteCalls).To(HaveLen(1))
	})

	It("should compute the same deletion set for unchanged inputs", func() {
		first := BadImages(context.TODO(), reg.images, keep)
		second := BadImages(context.TODO(), reg.images, keep)
		Expect(first).To(Equal(second))
	})

	It("should not delete anything when listing fails", func() {
		reg.listErr = errors.New("AccessDeniedException")
		_, err := New(reg).Prune(context.TODO(), "platform", keep)
		Expect(errors.Is(err, cleanuperr.ErrCollaborator)).To(BeTrue())
		Expect(reg.deleteCalls).To(BeEmpty())
	})

	It("should fail when the delete call fails", func() {
		reg.deleteErr = errors.New("throttled")
		_, err := New(reg).Prune(context.TODO(), "platform", keep)
		Expect(errors.Is(err, cleanuperr.ErrCollaborator)).To(BeTrue())
		Expect(err).To(MatchError(ContainSubstring("throttled")))
	})
})
