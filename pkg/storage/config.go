package storage

import "fmt"

// Kind discriminates a Storage row's backend type, per the tagged-variant
// design ("best expressed as tagged variants... dispatched by a small
// match/case").
type Kind string

const (
	KindLocal Kind = "local"
	KindS3    Kind = "s3"
)

// Region is a closed enum of well-known S3-compatible endpoints plus a
// custom escape hatch, per the S3 backend contract.
type Region string

const (
	RegionUSEast1      Region = "us-east-1"
	RegionUSWest2      Region = "us-west-2"
	RegionEUWest1      Region = "eu-west-1"
	RegionEUCentral1   Region = "eu-central-1"
	RegionAPSoutheast1 Region = "ap-southeast-1"
	RegionCustom       Region = "custom"
)

// Credentials for an S3-compatible backend.
type Credentials struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// LocalConfig is the "local" storage config document: {path: <abs path>}.
type LocalConfig struct {
	Path string `json:"path"`
}

func (c LocalConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("local storage config: path is required")
	}
	return nil
}

// S3Config is the "s3" storage config document:
// {bucket_name, region|custom_region, credentials, path_style}.
type S3Config struct {
	BucketName   string      `json:"bucket_name"`
	Prefix       string      `json:"prefix,omitempty"`
	Region       Region      `json:"region"`
	CustomRegion string      `json:"custom_region,omitempty"` // region_hint when Region == RegionCustom
	Endpoint     string      `json:"endpoint,omitempty"`       // endpoint when Region == RegionCustom
	Credentials  Credentials `json:"credentials"`
	PathStyle    bool        `json:"path_style"`
}

func (c S3Config) Validate() error {
	if c.BucketName == "" {
		return fmt.Errorf("s3 storage config: bucket_name is required")
	}
	if c.Region == "" {
		return fmt.Errorf("s3 storage config: region is required")
	}
	if c.Region == RegionCustom && (c.CustomRegion == "" || c.Endpoint == "") {
		return fmt.Errorf("s3 storage config: custom_region requires custom_region and endpoint")
	}
	return nil
}

// Config is the kind-discriminated storage configuration record attached to
// a Storage catalog row. Exactly one of Local/S3 is meaningful, selected by
// Kind.
type Config struct {
	Kind  Kind `json:"kind"`
	Local LocalConfig `json:"local,omitempty"`
	S3    S3Config    `json:"s3,omitempty"`
}

// Validate dispatches to the kind-specific validator.
func (c Config) Validate() error {
	switch c.Kind {
	case KindLocal:
		return c.Local.Validate()
	case KindS3:
		return c.S3.Validate()
	default:
		return fmt.Errorf("storage config: unknown kind %q", c.Kind)
	}
}
