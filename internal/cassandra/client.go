package cassandra

import (
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"

	"github.com/weiawesome/wes-io-chat/internal/config"
)

// Client owns the gocql session used by the Cassandra message store.
type Client struct {
	session *gocql.Session
}

func NewClient(cfg config.CassandraConfig) (*Client, error) {
	cluster := newCluster(cfg)

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}
	return &Client{session: session}, nil
}

func newCluster(cfg config.CassandraConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = ParseConsistency(cfg.Consistency)
	if cfg.ConnectTimeout > 0 {
		cluster.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	}
	if cfg.NumConns > 0 {
		cluster.NumConns = cfg.NumConns
	}

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
	}
	return cluster
}

func (c *Client) Session() *gocql.Session {
	return c.session
}

func (c *Client) Close() {
	if c.session != nil {
		c.session.Close()
	}
}

// ParseConsistency maps a config string onto a gocql level, LOCAL_QUORUM
// when unrecognised.
func ParseConsistency(s string) gocql.Consistency {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ANY":
		return gocql.Any
	case "ONE":
		return gocql.One
	case "TWO":
		return gocql.Two
	case "THREE":
		return gocql.Three
	case "QUORUM":
		return gocql.Quorum
	case "ALL":
		return gocql.All
	case "EACH_QUORUM":
		return gocql.EachQuorum
	case "LOCAL_ONE":
		return gocql.LocalOne
	default:
		return gocql.LocalQuorum
	}
}
