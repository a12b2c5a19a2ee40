package provision

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"gopkg.in/ini.v1"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/log"
)

// Keys of the shared credentials profile, in the order they are written.
const (
	KeyAccessKeyID     = "aws_access_key_id"
	KeySecretAccessKey = "aws_secret_access_key"
	KeyRegion          = "region"
)

// WriteAWSProfile writes the default profile of the shared credentials file,
// replacing any previous content. Nothing is verified against AWS here.
func (p *Provisioner) WriteAWSProfile(ctx context.Context, accessKeyID, secretAccessKey, region string) (string, error) {
	logger := logr.FromContextOrDiscard(ctx)

	contents, err := renderProfile(accessKeyID, secretAccessKey, region)
	if err != nil {
		return "", fmt.Errorf("could not render aws profile: %w", err)
	}

	path, err := p.writePrivateFile(p.awsDir, AWSCredentialsFilename, contents)
	if err != nil {
		return "", fmt.Errorf("could not write aws credentials: %w", err)
	}
	logger.V(log.DBG).Info("aws credentials written", "path", path, "profile", AWSProfile)
	return path, nil
}

func renderProfile(accessKeyID, secretAccessKey, region string) ([]byte, error) {
	f := ini.Empty()
	sec, err := f.NewSection(AWSProfile)
	if err != nil {
		return nil, err
	}
	for _, kv := range [][2]string{
		{KeyAccessKeyID, accessKeyID},
		{KeySecretAccessKey, secretAccessKey},
		{KeyRegion, region},
	} {
		if _, err := sec.NewKey(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
