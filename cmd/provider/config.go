package main

import (
	"os"
	"strconv"

	"github.com/datariver/provider-go/pkg/config"
)

// loadConfig builds the gateway configuration from environment variables.
func loadConfig() (*config.Config, int) {
	port := 8030
	if portStr := os.Getenv("PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	retries := 0
	if raw := os.Getenv("REQUEST_RETRIES"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			retries = n
		}
	}

	cfg := &config.Config{
		PrivateKey:       os.Getenv("PROVIDER_PRIVATE_KEY"),
		RPCAddr:          os.Getenv("RPC_ADDR"),
		IpfsGateway:      os.Getenv("IPFS_GATEWAY"),
		IpfsAPIAddr:      os.Getenv("IPFS_API_ADDR"),
		AllowNonPublicIP: envBool("ALLOW_NON_PUBLIC_IP"),
		RequestRetries:   retries,
		Debug:            envBool("DEBUG"),
	}
	return cfg, port
}

func envBool(name string) bool {
	switch os.Getenv(name) {
	case "1", "true", "TRUE", "True", "yes":
		return true
	}
	return false
}
