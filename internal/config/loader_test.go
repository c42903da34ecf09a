package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("SOP_TEST_HOST", "db.internal")

	cases := map[string]struct {
		in   string
		want string
	}{
		"set variable":             {in: "host: ${SOP_TEST_HOST}", want: "host: db.internal"},
		"set variable overrides":   {in: "host: ${SOP_TEST_HOST:fallback}", want: "host: db.internal"},
		"unset with default":       {in: "port: ${SOP_TEST_MISSING:5432}", want: "port: 5432"},
		"unset without default":    {in: "key: ${SOP_TEST_MISSING}", want: "key: ${SOP_TEST_MISSING}"},
		"multiple in one line":     {in: "${SOP_TEST_HOST}:${SOP_TEST_MISSING:6379}", want: "db.internal:6379"},
		"plain text passes though": {in: "name: sop-rag-api", want: "name: sop-rag-api"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, expandEnv(tc.in))
		})
	}
}
