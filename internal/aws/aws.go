package aws

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/pkg/errors"
)

const serviceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// LoadAWSConfig resolves credentials for the KMS client. Outside Kubernetes the shared
// profile named by AWS_PROFILE (or "default") is used; inside, the pod identity is.
func LoadAWSConfig(ctx context.Context, regionOverride string) (aws.Config, error) {
	var options []func(*config.LoadOptions) error

	if !inKubernetes() {
		options = append(options, config.WithSharedConfigProfile(profileName()))
	}
	if regionOverride != "" {
		options = append(options, config.WithRegion(regionOverride))
	}

	cfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, "failed to load AWS configuration")
	}
	return cfg, nil
}

// Identity is the principal that KMS requests will be made as.
type Identity struct {
	Account string
	Arn     string
	UserId  string
}

// GetCallerIdentity asks STS who the loaded credentials belong to.
func GetCallerIdentity(ctx context.Context, cfg aws.Config) (*Identity, error) {
	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get caller identity")
	}
	return &Identity{
		Account: aws.ToString(out.Account),
		Arn:     aws.ToString(out.Arn),
		UserId:  aws.ToString(out.UserId),
	}, nil
}

func inKubernetes() bool {
	_, err := os.Stat(serviceAccountTokenPath)
	return err == nil
}

func profileName() string {
	if profile := os.Getenv("AWS_PROFILE"); profile != "" {
		return profile
	}
	return "default"
}
