package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 2*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, int64(5*1024*1024), cfg.Uploads.MaxFileSizeBytes)
	assert.True(t, cfg.Complaints.EnforceResolverRole)
	assert.Equal(t, 20, cfg.Complaints.DescriptionMinLength)
	assert.Equal(t, 30*24*time.Hour, cfg.Maintenance.NotificationRetention)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.CORS.MaxAge)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("JWT_EXPIRATION", "soon")
	v.Set("MAINTENANCE_INTERVAL", "6h")
	cfg := fromViper(v)

	assert.Equal(t, 2*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 6*time.Hour, cfg.Maintenance.Interval)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , ,b "))
}
