package errors

import (
	"errors"
	"io/fs"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Error kinds", func() {
	Context("ConfigurationError", func() {
		It("should name the missing variable", func() {
			err := &ConfigurationError{Name: "ECR_REPOSITORY_NAME"}
			Expect(err.Error()).To(Equal("no value for ECR_REPOSITORY_NAME"))
			Expect(errors.Is(err, ErrConfiguration)).To(BeTrue())
		})
		It("should include the reason when one is given", func() {
			err := &ConfigurationError{Name: "COMMITS_PER_BRANCH", Reason: "must be a positive integer"}
			Expect(err.Error()).To(ContainSubstring("must be a positive integer"))
		})
	})

	Context("AuthenticationError", func() {
		It("should match the sentinel and the cause", func() {
			err := &AuthenticationError{Host: "github.com", Outcome: "failed", Err: fs.ErrNotExist}
			Expect(errors.Is(err, ErrAuthentication)).To(BeTrue())
			Expect(errors.Is(err, fs.ErrNotExist)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("github.com"))
		})
		It("should match the sentinel without a cause", func() {
			err := &AuthenticationError{Host: "github.com", Outcome: "failed"}
			Expect(errors.Is(err, ErrAuthentication)).To(BeTrue())
		})
	})

	Context("CollaboratorError", func() {
		It("should wrap the cause", func() {
			cause := errors.New("boom")
			err := Collaborator("git clone", cause)
			Expect(errors.Is(err, ErrCollaborator)).To(BeTrue())
			Expect(errors.Is(err, cause)).To(BeTrue())
			Expect(err.Error()).To(Equal("git clone: boom"))
		})
		It("should keep a nil error nil", func() {
			Expect(Collaborator("git clone", nil)).To(BeNil())
		})
	})
})
