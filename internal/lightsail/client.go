package lightsail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lightsail"
	"go.uber.org/zap"

	"cnlistener/internal/config"
)

// API is the subset of the Lightsail control plane used for IP replacement.
type API interface {
	GetStaticIps(ctx context.Context, params *lightsail.GetStaticIpsInput, optFns ...func(*lightsail.Options)) (*lightsail.GetStaticIpsOutput, error)
	DetachStaticIp(ctx context.Context, params *lightsail.DetachStaticIpInput, optFns ...func(*lightsail.Options)) (*lightsail.DetachStaticIpOutput, error)
	ReleaseStaticIp(ctx context.Context, params *lightsail.ReleaseStaticIpInput, optFns ...func(*lightsail.Options)) (*lightsail.ReleaseStaticIpOutput, error)
	AllocateStaticIp(ctx context.Context, params *lightsail.AllocateStaticIpInput, optFns ...func(*lightsail.Options)) (*lightsail.AllocateStaticIpOutput, error)
	AttachStaticIp(ctx context.Context, params *lightsail.AttachStaticIpInput, optFns ...func(*lightsail.Options)) (*lightsail.AttachStaticIpOutput, error)
}

// Client replaces the static IP attached to a Lightsail instance. When
// disabled it is a logging no-op, which keeps the outage tracker harmless in
// environments without AWS credentials.
type Client struct {
	api      API
	instance string
	enabled  bool
	logger   *zap.Logger
}

// NewClient builds a client from the default AWS credential chain. The
// credential profile baked into the deployment image satisfies the chain at
// runtime.
func NewClient(ctx context.Context, cfg config.LightsailConfig, logger *zap.Logger) (*Client, error) {
	if !cfg.Enabled {
		logger.Info("lightsail ip replacement disabled")
		return &Client{enabled: false, logger: logger}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Client{
		api:      lightsail.NewFromConfig(awsCfg),
		instance: cfg.Instance,
		enabled:  true,
		logger:   logger,
	}, nil
}

// newWithAPI is the test seam.
func newWithAPI(api API, instance string, logger *zap.Logger) *Client {
	return &Client{api: api, instance: instance, enabled: true, logger: logger}
}

// ReplaceIP detaches and releases every static IP currently attached to the
// instance, then allocates a fresh one and attaches it. The instance keeps
// its name-derived static IP name so repeated replacements do not leak
// allocations.
func (c *Client) ReplaceIP(ctx context.Context) error {
	if !c.enabled {
		c.logger.Info("lightsail replacement skipped (disabled)")
		return nil
	}

	c.logger.Info("replacing instance static ip", zap.String("instance", c.instance))

	var token *string
	for {
		out, err := c.api.GetStaticIps(ctx, &lightsail.GetStaticIpsInput{PageToken: token})
		if err != nil {
			return fmt.Errorf("list static ips: %w", err)
		}

		for _, ip := range out.StaticIps {
			if !aws.ToBool(ip.IsAttached) || aws.ToString(ip.AttachedTo) != c.instance {
				continue
			}
			name := aws.ToString(ip.Name)
			if _, err := c.api.DetachStaticIp(ctx, &lightsail.DetachStaticIpInput{
				StaticIpName: ip.Name,
			}); err != nil {
				return fmt.Errorf("detach static ip %s: %w", name, err)
			}
			if _, err := c.api.ReleaseStaticIp(ctx, &lightsail.ReleaseStaticIpInput{
				StaticIpName: ip.Name,
			}); err != nil {
				return fmt.Errorf("release static ip %s: %w", name, err)
			}
			c.logger.Info("released static ip", zap.String("name", name))
		}

		if out.NextPageToken == nil {
			break
		}
		token = out.NextPageToken
	}

	name := c.instance + "-ip"
	if _, err := c.api.AllocateStaticIp(ctx, &lightsail.AllocateStaticIpInput{
		StaticIpName: aws.String(name),
	}); err != nil {
		return fmt.Errorf("allocate static ip %s: %w", name, err)
	}
	if _, err := c.api.AttachStaticIp(ctx, &lightsail.AttachStaticIpInput{
		StaticIpName: aws.String(name),
		InstanceName: aws.String(c.instance),
	}); err != nil {
		return fmt.Errorf("attach static ip %s: %w", name, err)
	}

	c.logger.Info("instance static ip replaced",
		zap.String("instance", c.instance),
		zap.String("static_ip", name))
	return nil
}
