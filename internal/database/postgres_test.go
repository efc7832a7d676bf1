package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDBConfig_ConnectionStrings(t *testing.T) {
	c := &DBConfig{
		Host:     "db",
		Port:     "5432",
		User:     "pickline",
		Password: "p@ss word",
		Name:     "pickline",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=pickline password=p@ss word dbname=pickline sslmode=disable", c.DSN())
	assert.Equal(t, "postgres://pickline:p%40ss%20word@db:5432/pickline?sslmode=disable", c.URL())
}
