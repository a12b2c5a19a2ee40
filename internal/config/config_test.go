package config

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	cleanuperr "github.com/redhat-openshift-ecosystem/ecr-cleanup/errors"
)

var validEnv = map[string]string{
	EnvAWSAccessKeyID:     "AKIAEXAMPLE",
	EnvAWSSecretAccessKey: "secret",
	EnvAWSRegion:          "eu-west-1",
	EnvRepositoryName:     "platform",
	EnvContainerNames:     "api, worker ,",
	EnvGitHubRepository:   "acme/platform",
	EnvDeployKey:          "a2V5",
	EnvCommitsPerBranch:   "5",
}

// setEnv sets every variable in env and registers cleanup for it.
func setEnv(env map[string]string) {
	for k, v := range env {
		DeferCleanup(os.Unsetenv, k)
		Expect(os.Setenv(k, v)).To(Succeed())
	}
}

func withOverride(key, value string) map[string]string {
	env := make(map[string]string, len(validEnv))
	for k, v := range validEnv {
		env[k] = v
	}
	env[key] = value
	return env
}

var _ = Describe("Loading configuration", func() {
	BeforeEach(func() {
		for _, env := range append([]string{EnvGitHubToken}, RequiredEnv...) {
			prev, ok := os.LookupEnv(env)
			Expect(os.Unsetenv(env)).To(Succeed())
			if ok {
				DeferCleanup(os.Setenv, env, prev)
			}
		}
	})

	When("every required variable is set", func() {
		It("should return a populated configuration", func() {
			setEnv(validEnv)
			cfg, err := NewConfigFrom(viper.New())
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.AWSAccessKeyID).To(Equal("AKIAEXAMPLE"))
			Expect(cfg.AWSSecretAccessKey).To(Equal("secret"))
			Expect(cfg.AWSRegion).To(Equal("eu-west-1"))
			Expect(cfg.RepositoryName).To(Equal("platform"))
			Expect(cfg.ContainerNames).To(Equal([]string{"api", "worker"}))
			Expect(cfg.GitHubRepository).To(Equal("acme/platform"))
			Expect(cfg.DeployKey).To(Equal("a2V5"))
			Expect(cfg.CommitsPerBranch).To(Equal(5))
		})

		It("should apply defaults to the tool settings", func() {
			setEnv(validEnv)
			cfg, err := NewConfigFrom(viper.New())
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.GitHost).To(Equal(DefaultGitHost))
			Expect(cfg.VCS).To(Equal(VCSGit))
			Expect(filepath.Base(cfg.SSHDir)).To(Equal(".ssh"))
			Expect(filepath.Base(cfg.AWSDir)).To(Equal(".aws"))
			Expect(cfg.SSHDir).ToNot(HavePrefix("~"))
		})

		It("should honour explicit tool settings", func() {
			setEnv(validEnv)
			setEnv(map[string]string{EnvGitHubToken: "ghp_token"})
			v := viper.New()
			v.Set(KeySSHDir, "/tmp/ssh")
			v.Set(KeyAWSDir, "/tmp/aws")
			v.Set(KeyGitHost, "git.example.com")
			v.Set(KeyVCS, "GitHub")
			v.Set(KeyWorkDir, "/tmp/work")
			cfg, err := NewConfigFrom(v)
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.SSHDir).To(Equal("/tmp/ssh"))
			Expect(cfg.AWSDir).To(Equal("/tmp/aws"))
			Expect(cfg.GitHost).To(Equal("git.example.com"))
			Expect(cfg.VCS).To(Equal(VCSGitHub))
			Expect(cfg.WorkDir).To(Equal("/tmp/work"))
			Expect(cfg.GitHubToken).To(Equal("ghp_token"))
		})
	})

	DescribeTable("a required variable is missing or empty",
		func(name string, empty bool) {
			env := withOverride(name, "")
			if !empty {
				delete(env, name)
			}
			setEnv(env)
			_, err := NewConfigFrom(viper.New())
			Expect(err).To(HaveOccurred())
			var cerr *cleanuperr.ConfigurationError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Name).To(Equal(name))
			Expect(errors.Is(err, cleanuperr.ErrConfiguration)).To(BeTrue())
		},
		Entry("access key id absent", EnvAWSAccessKeyID, false),
		Entry("access key id empty", EnvAWSAccessKeyID, true),
		Entry("secret absent", EnvAWSSecretAccessKey, false),
		Entry("region empty", EnvAWSRegion, true),
		Entry("repository name absent", EnvRepositoryName, false),
		Entry("container names empty", EnvContainerNames, true),
		Entry("github repository absent", EnvGitHubRepository, false),
		Entry("deploy key empty", EnvDeployKey, true),
		Entry("commits per branch absent", EnvCommitsPerBranch, false),
	)

	When("several variables are missing", func() {
		It("should report the first one in validation order", func() {
			setEnv(map[string]string{EnvAWSAccessKeyID: "id", EnvAWSSecretAccessKey: "secret"})
			_, err := NewConfigFrom(viper.New())
			var cerr *cleanuperr.ConfigurationError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Name).To(Equal(EnvAWSRegion))
		})
	})

	DescribeTable("commits per branch is not a positive integer",
		func(value string) {
			setEnv(withOverride(EnvCommitsPerBranch, value))
			_, err := NewConfigFrom(viper.New())
			var cerr *cleanuperr.ConfigurationError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Name).To(Equal(EnvCommitsPerBranch))
		},
		Entry("text", "five"),
		Entry("zero", "0"),
		Entry("negative", "-3"),
		Entry("decimal", "2.5"),
	)

	When("the container list holds only separators", func() {
		It("should be rejected", func() {
			setEnv(withOverride(EnvContainerNames, " , ,"))
			_, err := NewConfigFrom(viper.New())
			var cerr *cleanuperr.ConfigurationError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Name).To(Equal(EnvContainerNames))
		})
	})

	When("an unknown history backend is requested", func() {
		It("should be rejected", func() {
			setEnv(validEnv)
			v := viper.New()
			v.Set(KeyVCS, "svn")
			_, err := NewConfigFrom(v)
			Expect(errors.Is(err, cleanuperr.ErrConfiguration)).To(BeTrue())
		})
	})

	When("an env prefix is configured on the viper instance", func() {
		It("should still read the required variables by their exact names", func() {
			setEnv(validEnv)
			v := viper.New()
			v.SetEnvPrefix("ecrc")
			v.AutomaticEnv()
			cfg, err := NewConfigFrom(v)
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.RepositoryName).To(Equal("platform"))
		})
	})
})

var _ = Describe("Splitting container names", func() {
	It("should trim entries and drop empty ones", func() {
		Expect(SplitContainerNames(" api,worker , ,cron")).To(Equal([]string{"api", "worker", "cron"}))
	})
	It("should return an empty list for an empty string", func() {
		Expect(SplitContainerNames("")).To(BeEmpty())
	})
})
