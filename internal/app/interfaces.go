package app

import (
	"github.com/asaskevich/EventBus"
	"gorm.io/gorm"

	"github.com/storekit/storekit/config"
	"github.com/storekit/storekit/internal/assetstore"
	"github.com/storekit/storekit/internal/product"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// AssetsProvider provides the blob storage backend
type AssetsProvider interface {
	Assets() assetstore.Store
}

// ServiceProvider provides the product lifecycle service and repository
type ServiceProvider interface {
	Service() *product.Service
	Repo() product.Repository
	Bus() EventBus.Bus
}
