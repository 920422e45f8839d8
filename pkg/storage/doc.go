// Package storage retrieves asset documents from content-addressed storage.
//
// Asset documents (DDOs) are published as JSON blobs addressed by CID. The
// Client reads them either through a local Kubo node's HTTP API or, when no
// node is configured, through a public IPFS HTTP gateway. Both paths accept
// bare CIDs and ipfs:// URIs.
package storage
