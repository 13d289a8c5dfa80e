package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"example.com/tenantimport/catalog"
	"example.com/tenantimport/importer"
)

// getEnv reads an environment variable or returns a default.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func main() {
	var provider importer.CatalogProvider
	var leases importer.LeaseCreator

	// A configured database path selects the persistent catalog; the
	// in-memory store otherwise.
	if dbPath := getEnv("IMPORT_DB_PATH", ""); dbPath != "" {
		store, err := catalog.NewSQLiteStore(dbPath)
		if err != nil {
			log.Fatalf("Failed to open catalog database: %v", err)
		}
		defer store.Close()
		log.Printf("Using SQLite catalog at %s", dbPath)
		provider, leases = store, store
	} else {
		store := catalog.NewStore()
		log.Println("Using in-memory catalog")
		provider, leases = store, store
	}

	// Initialize the API with the session store and catalog
	api := importer.NewAPI(importer.NewStore(), provider, leases)

	// Initialize Gin router
	router := gin.Default()

	// Register API routes
	api.RegisterRoutes(router)

	// Start the server
	port := getEnv("IMPORT_SERVICE_PORT", "8080")
	log.Printf("Starting import service on :%s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
