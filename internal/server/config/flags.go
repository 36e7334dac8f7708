package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/realmd/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     gRPC bind address (e.g., ":3725")
//	-m string     metrics/admin HTTP bind address (e.g., ":9100")
//	-d string     auth database DSN
//	-w string     characters database DSN
//	-i duration   realm list update interval (e.g., "20s"; 0 disables)
//	-n string     DNS server for realm addresses (host:port)
//	-x int        expansion for new accounts
//	-s string     JWT HMAC secret key
//	-t int        access token validity, minutes
//	-l string     log level (debug, info, warn, error)
//	-u string     S3 root user
//	-p string     S3 root password
//	-b string     S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Only these flags are taken from args (flagx.FilterArgs), so -c/-config
// and flags of other components do not collide.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{
		"-a", "-m", "-d", "-w", "-i", "-n", "-x", "-s", "-t", "-l", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run gRPC server")
	fs.StringVar(&config.EndpointAddrHTTP, "m", config.EndpointAddrHTTP, "address and port to run metrics server")
	fs.StringVar(&config.AuthDatabaseDSN, "d", config.AuthDatabaseDSN, "auth database DSN")
	fs.StringVar(&config.CharactersDatabaseDSN, "w", config.CharactersDatabaseDSN, "characters database DSN")
	fs.DurationVar(&config.RealmsStateUpdateDelay, "i", config.RealmsStateUpdateDelay, "realm list update interval")
	fs.StringVar(&config.ResolverServer, "n", config.ResolverServer, "DNS server for realm addresses")
	expansion := fs.Uint("x", uint(config.Expansion), "expansion for new accounts")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.Expansion = uint8(*expansion)
	if fs.Lookup("t").Value.String() != fs.Lookup("t").DefValue {
		config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	}
}
