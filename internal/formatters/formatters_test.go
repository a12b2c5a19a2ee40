package formatters

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/cleanup"
	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/registry"
)

var _ = Describe("Formatters", func() {
	Describe("When getting the formatter for the named default format", func() {
		It("should never fail", func() {
			_, err := NewByName(DefaultFormat)
			Expect(err).ToNot(HaveOccurred())
		})
	})

	DescribeTable("When getting a formatter by name",
		func(name, extension string) {
			formatter, err := NewByName(name)
			Expect(err).ToNot(HaveOccurred())
			Expect(formatter.FileExtension()).To(Equal(extension))
		},
		Entry("json", "json", "json"),
		Entry("xml", "xml", "xml"),
		Entry("yaml", "yaml", "yaml"),
		Entry("text", "text", "txt"),
	)

	It("should list every available formatter", func() {
		for _, name := range Names() {
			_, err := NewByName(name)
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(Names()).To(HaveLen(len(availableFormatters)))
	})

	Context("with an unknown format requested by the user", func() {
		It("should return an error", func() {
			formatter, err := NewByName("unknownFormat")
			Expect(err).To(HaveOccurred())
			Expect(formatter).To(BeNil())
		})
	})

	Describe("When creating a new generic formatter", func() {
		Context("with improper arguments", func() {
			expectedResult := []byte(fmt.Errorf("failed to create a new generic formatter: formatter name is required").Error())
			fn := func(context.Context, *cleanup.RunReport) ([]byte, error) {
				return expectedResult, nil
			}

			emptyNameFormatter, err := New("", "txt", fn)
			It("should return an error because of an empty name", func() {
				Expect(err).To(HaveOccurred())
				Expect(emptyNameFormatter).To(BeNil())
			})
		})

		Context("with proper arguments", func() {
			expectedResult := []byte("this is a test")
			name := "testFormatter"
			extension := "txt"
			fn := func(context.Context, *cleanup.RunReport) ([]byte, error) {
				return expectedResult, nil
			}

			formatter, err := New(name, extension, fn)
			It("should not return an error", func() {
				Expect(err).ToNot(HaveOccurred())
				Expect(formatter).ToNot(BeNil())
			})

			It("should format the report as expected", func() {
				formattingResult, err := formatter.Format(context.TODO(), &cleanup.RunReport{})
				Expect(err).ToNot(HaveOccurred())
				Expect(formattingResult).To(Equal(expectedResult))
			})

			It("should be identifiable as the provided name", func() {
				Expect(formatter.PrettyName()).To(Equal(name))
			})
		})
	})

	Describe("When formatting a report as text", func() {
		It("should summarize the counts and list the images", func() {
			out, err := textFormatter(context.TODO(), &cleanup.RunReport{
				Repository:       "platform",
				SourceRepository: "acme/platform",
				WhitelistSize:    2,
				Listed:           5,
				Blank:            1,
				Deleted:          []registry.Image{{Tag: "api-old"}, {Digest: "sha256:d"}},
				Failures: []registry.Failure{{
					Image:  registry.Image{Tag: "web-old"},
					Code:   "ImageReferencedByManifestList",
					Reason: "in use",
				}},
			})
			Expect(err).ToNot(HaveOccurred())

			text := string(out)
			Expect(text).To(MatchRegexp(`Repository:\s+platform`))
			Expect(text).To(MatchRegexp(`Listed images:\s+5`))
			Expect(text).To(MatchRegexp(`Deleted images:\s+2`))
			Expect(text).To(ContainSubstring("- api-old\n"))
			Expect(text).To(ContainSubstring("- sha256:d\n"))
			Expect(text).To(ContainSubstring("- web-old: in use (ImageReferencedByManifestList)"))
		})

		It("should leave out the image lists when nothing was deleted", func() {
			out, err := textFormatter(context.TODO(), &cleanup.RunReport{Repository: "platform"})
			Expect(err).ToNot(HaveOccurred())
			Expect(string(out)).ToNot(ContainSubstring("Deleted:"))
			Expect(string(out)).ToNot(ContainSubstring("Not deleted:"))
		})
	})
})
