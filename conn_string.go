package ygggo_mockdb

import (
	"fmt"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
)

// Well-known connection string keys.
const (
	KeyDataSource = "data source"
	KeyDatabase   = "database"
	KeyUserID     = "user id"
	KeyPassword   = "password"
)

// keySynonyms maps accepted spellings onto canonical keys.
var keySynonyms = map[string]string{
	"server":          KeyDataSource,
	"address":         KeyDataSource,
	"addr":            KeyDataSource,
	"host":            KeyDataSource,
	"initial catalog": KeyDatabase,
	"uid":             KeyUserID,
	"user":            KeyUserID,
	"pwd":             KeyPassword,
}

func canonicalKey(key string) string {
	k := strings.ToLower(strings.Join(strings.Fields(key), " "))
	if c, ok := keySynonyms[k]; ok {
		return c
	}
	return k
}

// ConnectionStringBuilder parses and builds "key=value;key=value" connection strings.
// Keys are case-insensitive and keep their first-seen order.
type ConnectionStringBuilder struct {
	keys   []string
	values map[string]string
}

// NewConnectionStringBuilder returns an empty builder.
func NewConnectionStringBuilder() *ConnectionStringBuilder {
	return &ConnectionStringBuilder{values: make(map[string]string)}
}

// ParseConnectionString parses s. Values may be quoted with ' or "; a doubled
// quote inside a quoted value stands for one quote character.
func ParseConnectionString(s string) (*ConnectionStringBuilder, error) {
	b := NewConnectionStringBuilder()
	i := 0
	for i < len(s) {
		// key
		eq := strings.IndexByte(s[i:], '=')
		semi := strings.IndexByte(s[i:], ';')
		if semi == 0 {
			i++
			continue
		}
		if eq < 0 || (semi >= 0 && semi < eq) {
			rest := s[i:]
			if semi >= 0 {
				rest = s[i : i+semi]
			}
			if strings.TrimSpace(rest) == "" {
				i += len(rest) + 1
				continue
			}
			return nil, fmt.Errorf("connection string: missing '=' in %q", strings.TrimSpace(rest))
		}
		key := strings.TrimSpace(s[i : i+eq])
		if key == "" {
			return nil, fmt.Errorf("connection string: empty key at offset %d", i)
		}
		i += eq + 1
		for i < len(s) && s[i] == ' ' {
			i++
		}

		// value
		var value string
		if i < len(s) && (s[i] == '\'' || s[i] == '"') {
			q := s[i]
			i++
			var sb strings.Builder
			closed := false
			for i < len(s) {
				if s[i] == q {
					if i+1 < len(s) && s[i+1] == q {
						sb.WriteByte(q)
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				sb.WriteByte(s[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("connection string: unterminated quote for key %q", key)
			}
			value = sb.String()
			for i < len(s) && s[i] != ';' {
				if s[i] != ' ' {
					return nil, fmt.Errorf("connection string: unexpected text after quoted value of %q", key)
				}
				i++
			}
		} else {
			end := strings.IndexByte(s[i:], ';')
			if end < 0 {
				end = len(s) - i
			}
			value = strings.TrimSpace(s[i : i+end])
			i += end
		}
		if i < len(s) && s[i] == ';' {
			i++
		}
		b.Set(key, value)
	}
	return b, nil
}

// FromMySQLDSN converts a go-sql-driver/mysql DSN into a builder.
func FromMySQLDSN(dsn string) (*ConnectionStringBuilder, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	b := NewConnectionStringBuilder()
	if cfg.Addr != "" {
		b.Set(KeyDataSource, cfg.Addr)
	}
	if cfg.DBName != "" {
		b.Set(KeyDatabase, cfg.DBName)
	}
	if cfg.User != "" {
		b.Set(KeyUserID, cfg.User)
	}
	if cfg.Passwd != "" {
		b.Set(KeyPassword, cfg.Passwd)
	}
	return b, nil
}

// parseAnyConnectionString accepts both key=value strings and MySQL DSNs.
func parseAnyConnectionString(s string) (*ConnectionStringBuilder, error) {
	b, err := ParseConnectionString(s)
	if err == nil && (len(b.keys) > 0 || strings.TrimSpace(s) == "") {
		if !looksLikeMySQLDSN(s) {
			return b, nil
		}
	}
	if mb, merr := FromMySQLDSN(s); merr == nil {
		return mb, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func looksLikeMySQLDSN(s string) bool {
	return strings.Contains(s, "@tcp(") || strings.Contains(s, "@unix(") ||
		(strings.Contains(s, "/") && !strings.Contains(s, ";") && strings.Contains(s, "@"))
}

// Len returns the number of keys.
func (b *ConnectionStringBuilder) Len() int { return len(b.keys) }

// Keys returns the canonical keys in order.
func (b *ConnectionStringBuilder) Keys() []string { return append([]string(nil), b.keys...) }

// Get returns the value for key (synonyms accepted).
func (b *ConnectionStringBuilder) Get(key string) (string, bool) {
	v, ok := b.values[canonicalKey(key)]
	return v, ok
}

// ContainsKey reports whether key is present.
func (b *ConnectionStringBuilder) ContainsKey(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// Set stores value under key, keeping the original position of an existing key.
func (b *ConnectionStringBuilder) Set(key, value string) *ConnectionStringBuilder {
	if b.values == nil {
		b.values = make(map[string]string)
	}
	k := canonicalKey(key)
	if _, ok := b.values[k]; !ok {
		b.keys = append(b.keys, k)
	}
	b.values[k] = value
	return b
}

// Remove deletes key.
func (b *ConnectionStringBuilder) Remove(key string) bool {
	k := canonicalKey(key)
	if _, ok := b.values[k]; !ok {
		return false
	}
	delete(b.values, k)
	for i, existing := range b.keys {
		if existing == k {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
	return true
}

// String builds the connection string, quoting values that need it.
func (b *ConnectionStringBuilder) String() string {
	parts := make([]string, 0, len(b.keys))
	for _, k := range b.keys {
		parts = append(parts, k+"="+quoteValue(b.values[k]))
	}
	return strings.Join(parts, ";")
}

func quoteValue(v string) string {
	if !strings.ContainsAny(v, ";'\"") && strings.TrimSpace(v) == v {
		return v
	}
	if !strings.Contains(v, "\"") {
		return "\"" + v + "\""
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// MySQLDSN formats the builder as a go-sql-driver/mysql DSN.
func (b *ConnectionStringBuilder) MySQLDSN() string {
	cfg := mysql.NewConfig()
	if addr, ok := b.Get(KeyDataSource); ok && addr != "" {
		cfg.Net = "tcp"
		cfg.Addr = addr
	}
	cfg.DBName, _ = b.Get(KeyDatabase)
	cfg.User, _ = b.Get(KeyUserID)
	cfg.Passwd, _ = b.Get(KeyPassword)
	return cfg.FormatDSN()
}
