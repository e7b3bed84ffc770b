package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/kodasoftware/example-api/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   HTTP bind address
//	-g string   gRPC bind address
//	-d string   PostgreSQL DSN
//	-k string   RSA private key PEM path
//	-p string   RSA public key PEM path
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-s string   comma separated cookie signing keys
//	-l string   log level
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-k", "-p", "-t", "-r", "-s", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.PrivateKeyPath, "k", config.PrivateKeyPath, "RSA private key (PEM)")
	fs.StringVar(&config.PublicKeyPath, "p", config.PublicKeyPath, "RSA public key (PEM)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	accessTTL := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTTL := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")
	cookieKeys := fs.String("s", strings.Join(config.CookieKeys, ","), "cookie signing keys, comma separated")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTTL) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTTL) * time.Minute
	if *cookieKeys != "" {
		config.CookieKeys = strings.Split(*cookieKeys, ",")
	}
}
