package app

import (
	"context"

	"github.com/linkupcampus/linkup/config"
	"github.com/linkupcampus/linkup/internal/auth"
	"github.com/linkupcampus/linkup/internal/media"
	"github.com/linkupcampus/linkup/internal/rating"
	"github.com/linkupcampus/linkup/internal/repository"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// DBProvider provides the optional audit database
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// StoreProvider provides the Airtable backed repositories
type StoreProvider interface {
	Services() *repository.ServiceRepository
	Users() *repository.UserRepository
	Listings() *ListingCache
}

// MarketplaceProvider provides marketplace services
type MarketplaceProvider interface {
	Ratings() *rating.Service
	Uploader() *media.Uploader
	Tokens() *auth.TokenManager
	Pool() *ants.Pool
	Auditor() *Auditor
}

// AppContext combines all provider interfaces for full application context
type AppContext interface {
	DBProvider
	ConfigProvider
	StoreProvider
	MarketplaceProvider

	Publish(ev Event)
	ProbeUpstream(ctx context.Context) UpstreamStatus
}
