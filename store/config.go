package store

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config holds configuration for the storage backends.
type Config struct {
	// EntityTable is the DynamoDB table holding entity records, keyed by "id".
	// Default: "nix_entities"
	EntityTable string `mapstructure:"entity_table"`

	// RelationshipTable is the name of the relationship table.
	// Default: "nix_relationships"
	RelationshipTable string `mapstructure:"relationship_table"`

	// UniqueTable is the name of the unique name constraints table.
	// Default: "nix_unique_names"
	UniqueTable string `mapstructure:"unique_table"`

	// NumShards is the number of shards for the relationship table.
	// Higher values increase write throughput per parent but require more
	// parallel queries when listing children.
	// Default: 1 (no sharding, single query)
	// Max: 256
	NumShards int `mapstructure:"num_shards"`

	// InlineCascade makes Dynamo.Delete propagate the deletion to all
	// descendants before returning. When false, propagation is left to the
	// stream handler.
	InlineCascade bool `mapstructure:"inline_cascade"`

	// Endpoint overrides the DynamoDB endpoint (e.g. DynamoDB local).
	Endpoint string `mapstructure:"endpoint"`

	// Region is the AWS region. Empty uses the SDK default chain.
	Region string `mapstructure:"region"`

	// SQLitePath is the database file used by OpenSQLite.
	// Default: ":memory:"
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DefaultConfig returns sensible defaults for small datasets.
func DefaultConfig() Config {
	return Config{
		EntityTable:       "nix_entities",
		RelationshipTable: "nix_relationships",
		UniqueTable:       "nix_unique_names",
		NumShards:         1,
		SQLitePath:        ":memory:",
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.EntityTable == "" {
		c.EntityTable = "nix_entities"
	}
	if c.RelationshipTable == "" {
		c.RelationshipTable = "nix_relationships"
	}
	if c.UniqueTable == "" {
		c.UniqueTable = "nix_unique_names"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = ":memory:"
	}
	if c.NumShards < 1 {
		c.NumShards = 1
	}
	if c.NumShards > 256 {
		c.NumShards = 256
	}
}

// LoadConfig reads a configuration file (YAML, TOML or JSON, picked by
// extension) on top of DefaultConfig. Environment variables prefixed with
// NIX_ override file values, e.g. NIX_NUM_SHARDS=16. An empty path reads
// only defaults and the environment.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("entity_table", def.EntityTable)
	v.SetDefault("relationship_table", def.RelationshipTable)
	v.SetDefault("unique_table", def.UniqueTable)
	v.SetDefault("num_shards", def.NumShards)
	v.SetDefault("inline_cascade", def.InlineCascade)
	v.SetDefault("endpoint", def.Endpoint)
	v.SetDefault("region", def.Region)
	v.SetDefault("sqlite_path", def.SQLitePath)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	cfg.validate()
	return cfg, nil
}

// NewDynamoClient builds a DynamoDB client from the default AWS credential
// chain, honouring cfg.Region and cfg.Endpoint.
func NewDynamoClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
