package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/realmd/internal/flagx"
	"github.com/dmitrijs2005/realmd/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations use timex.Duration so
// both "20s" and integer nanoseconds are accepted; pointer fields tell an
// explicit false apart from an absent key.
type JsonConfig struct {
	EndpointAddrGRPC            string          `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP            string          `json:"endpoint_addr_http"`
	AuthDatabaseDSN             string          `json:"auth_database_dsn"`
	CharactersDatabaseDSN       string          `json:"characters_database_dsn"`
	RealmsStateUpdateDelay      *timex.Duration `json:"realms_state_update_delay"`
	ResolverTimeout             timex.Duration  `json:"resolver_timeout"`
	ResolverServer              string          `json:"resolver_server"`
	Expansion                   *uint8          `json:"expansion"`
	SecretKey                   string          `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration  `json:"access_token_validity_duration"`
	LogLevel                    string          `json:"log_level"`
	S3Publish                   *bool           `json:"s3_publish"`
	S3Archive                   *bool           `json:"s3_archive"`
	S3RootUser                  string          `json:"s3_root_user"`
	S3RootPassword              string          `json:"s3_root_password"`
	S3Bucket                    string          `json:"s3_bucket"`
	S3Region                    string          `json:"s3_region"`
	S3BaseEndpoint              string          `json:"s3_base_endpoint"`
}

// parseJson overlays the file named by -c/-config in args, if any. Keys
// missing from the file leave the current value alone. An unreadable file
// or invalid JSON panics.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigFile(args)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.AuthDatabaseDSN, c.AuthDatabaseDSN)
	setString(&config.CharactersDatabaseDSN, c.CharactersDatabaseDSN)
	if c.RealmsStateUpdateDelay != nil {
		config.RealmsStateUpdateDelay = c.RealmsStateUpdateDelay.Duration
	}
	if c.ResolverTimeout.Duration > 0 {
		config.ResolverTimeout = c.ResolverTimeout.Duration
	}
	setString(&config.ResolverServer, c.ResolverServer)
	if c.Expansion != nil {
		config.Expansion = *c.Expansion
	}
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
	if c.S3Publish != nil {
		config.S3Publish = *c.S3Publish
	}
	if c.S3Archive != nil {
		config.S3Archive = *c.S3Archive
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
