package internal

import (
	"bitwise74/capture-api/internal/service"
	"bitwise74/capture-api/internal/storage"
	"bitwise74/capture-api/pkg/security"

	"gorm.io/gorm"
)

// Deps is built once at startup and handed to every handler. Nothing in here
// is mutated after that
type Deps struct {
	DB       *gorm.DB
	Argon    *security.ArgonHash
	Tokens   *security.TokenCodec
	Blobs    storage.Store
	Analyzer *service.Analyzer

	// Image types accepted by the analyze endpoint
	AllowedTypes  []string
	MaxUploadSize int64
	SecureCookies bool
	// Mounts the /seed route, never enable in production
	EnableSeed bool
}
