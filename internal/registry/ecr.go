package registry

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ecr"
	"github.com/aws/aws-sdk-go/service/ecr/ecriface"
	"github.com/go-logr/logr"

	"github.com/redhat-openshift-ecosystem/ecr-cleanup/internal/log"
)

// maxBatchDelete is the largest number of image ids ECR accepts in one
// BatchDeleteImage request.
const maxBatchDelete = 100

// ECRClient is a Client backed by the ECR API.
type ECRClient struct {
	svc ecriface.ECRAPI
}

var _ Client = &ECRClient{}

// NewECRClient returns a client for region using the named profile of the
// shared credentials file at credentialsFile.
func NewECRClient(credentialsFile, profile, region string) (*ECRClient, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewSharedCredentials(credentialsFile, profile),
		Region:      aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create aws session: %w", err)
	}
	return NewECRClientFromAPI(ecr.New(sess)), nil
}

// NewECRClientFromAPI wraps an existing ECR API implementation.
func NewECRClientFromAPI(svc ecriface.ECRAPI) *ECRClient {
	return &ECRClient{svc: svc}
}

// ListImages pages through every image id of repository.
func (c *ECRClient) ListImages(ctx context.Context, repository string) ([]Image, error) {
	logger := logr.FromContextOrDiscard(ctx)

	var images []Image
	pages := 0
	err := c.svc.ListImagesPagesWithContext(ctx, &ecr.ListImagesInput{
		RepositoryName: aws.String(repository),
	}, func(out *ecr.ListImagesOutput, lastPage bool) bool {
		pages++
		for _, id := range out.ImageIds {
			images = append(images, fromIdentifier(id))
		}
		return true
	})
	if err != nil {
		return nil, describeError("list images", err)
	}
	logger.V(log.DBG).Info("listed images", "repository", repository, "count", len(images), "pages", pages)
	return images, nil
}

// BatchDeleteImages deletes ids, split into as many BatchDeleteImage
// requests as the API limit requires. Images ECR refuses to delete are
// reported in the result, not as an error.
func (c *ECRClient) BatchDeleteImages(ctx context.Context, repository string, ids []Image) (*DeleteResult, error) {
	logger := logr.FromContextOrDiscard(ctx)

	result := &DeleteResult{}
	for start := 0; start < len(ids); start += maxBatchDelete {
		end := start + maxBatchDelete
		if end > len(ids) {
			end = len(ids)
		}

		identifiers := make([]*ecr.ImageIdentifier, 0, end-start)
		for _, img := range ids[start:end] {
			identifiers = append(identifiers, toIdentifier(img))
		}

		logger.V(log.TRC).Info("sending batch delete", "repository", repository, "count", len(identifiers))
		out, err := c.svc.BatchDeleteImageWithContext(ctx, &ecr.BatchDeleteImageInput{
			RepositoryName: aws.String(repository),
			ImageIds:       identifiers,
		})
		if err != nil {
			return result, describeError("batch delete images", err)
		}
		for _, id := range out.ImageIds {
			result.Deleted = append(result.Deleted, fromIdentifier(id))
		}
		for _, f := range out.Failures {
			result.Failures = append(result.Failures, Failure{
				Image:  fromIdentifier(f.ImageId),
				Code:   aws.StringValue(f.FailureCode),
				Reason: aws.StringValue(f.FailureReason),
			})
		}
	}
	return result, nil
}

func fromIdentifier(id *ecr.ImageIdentifier) Image {
	if id == nil {
		return Image{}
	}
	return Image{
		Tag:    aws.StringValue(id.ImageTag),
		Digest: aws.StringValue(id.ImageDigest),
	}
}

// toIdentifier sets only the fields present on img.
func toIdentifier(img Image) *ecr.ImageIdentifier {
	id := &ecr.ImageIdentifier{}
	if img.Tag != "" {
		id.ImageTag = aws.String(img.Tag)
	}
	if img.Digest != "" {
		id.ImageDigest = aws.String(img.Digest)
	}
	return id
}

func describeError(op string, err error) error {
	if aerr, ok := err.(awserr.Error); ok {
		return fmt.Errorf("ecr %s: %s: %w", op, aerr.Code(), err)
	}
	return fmt.Errorf("ecr %s: %w", op, err)
}
