package config

type CatalogConfig interface {
	GetCatalogLocation() string
	GetPublicURL() string
}

type Catalog struct{}

var _ CatalogConfig = Catalog{}

func (Catalog) GetCatalogLocation() string {
	return GetEnv("CATALOG_LOCATION", "Irvine, CA")
}

// GetPublicURL is the page link attached to shared deals.
func (Catalog) GetPublicURL() string {
	return GetEnv("PUBLIC_URL", "http://localhost:8080")
}
