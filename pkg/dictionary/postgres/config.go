package postgres

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Config holds the connection parameters of the dictionary database.
type Config struct {
	User     string
	Password string
	Host     string
	Port     string
	DBName   string
}

func (c *Config) ConString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   c.DBName,
	}
	return u.String()
}

func (c Config) String() string {
	c.Password = strings.Repeat("*", len([]rune(c.Password)))

	return fmt.Sprintf("%#v", c)
}

func (c *Config) IsValid() bool {
	if _, err := strconv.ParseUint(c.Port, 10, 16); err != nil {
		return false
	}
	if c.User == "" || c.Password == "" || c.Host == "" || c.Port == "" || c.DBName == "" {
		return false
	}
	return true
}
