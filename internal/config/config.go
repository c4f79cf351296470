// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Vector and graph backends.
const (
	VectorChromem = "chromem"
	VectorQdrant  = "qdrant"

	GraphNeo4j    = "neo4j"
	GraphSQLite   = "sqlite"
	GraphPostgres = "postgres"
	GraphMemory   = "memory"
)

type Config struct {
	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":8000"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000,http://localhost:5173" envSeparator:","`

	VectorBackend  string `env:"VECTOR_BACKEND" envDefault:"chromem"`
	Collection     string `env:"VECTOR_COLLECTION" envDefault:"research_papers"`
	QdrantHost     string `env:"QDRANT_SERVICE_HOST"`
	QdrantPort     int    `env:"QDRANT_SERVICE_PORT" envDefault:"6334"`
	QdrantRecreate bool   `env:"QDRANT_RECREATE" envDefault:"true"`

	GraphBackend  string `env:"GRAPH_BACKEND" envDefault:"neo4j"`
	Neo4jURI      string `env:"NEO4J_URI" envDefault:"bolt://localhost:7687"`
	Neo4jUsername string `env:"NEO4J_USERNAME" envDefault:"neo4j"`
	Neo4jPassword string `env:"NEO4J_PASSWORD" envDefault:"password"`
	Neo4jDatabase string `env:"NEO4J_DATABASE"`
	DBURL         string `env:"DB_URL"`

	MaxFeatures      int `env:"TFIDF_MAX_FEATURES" envDefault:"1000"`
	EmbedWorkers     int `env:"EMBED_WORKERS" envDefault:"10"`
	TopK             int `env:"RETRIEVAL_TOP_K" envDefault:"5"`
	GraphResultLimit int `env:"GRAPH_RESULT_LIMIT" envDefault:"10"`
	IngestMaxChunks  int `env:"INGEST_MAX_CHUNKS" envDefault:"200"`
	MinFreeMemoryMB  int `env:"MIN_FREE_MEMORY_MB" envDefault:"200"`
	MaxUploadMB      int `env:"MAX_UPLOAD_MB" envDefault:"50"`
}

// Load reads .env.dev and .env when present, then parses the environment.
func Load() (*Config, error) {
	for _, file := range []string{".env.dev", ".env"} {
		if err := godotenv.Load(file); err == nil {
			logrus.WithField("file", file).Info("env file loaded successfully")
		}
	}
	return Parse()
}

// Parse reads the environment into a Config and validates it.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend names and the settings each backend needs.
func (c *Config) Validate() error {
	switch c.VectorBackend {
	case VectorChromem:
	case VectorQdrant:
		if c.QdrantHost == "" {
			return fmt.Errorf("QDRANT_SERVICE_HOST is required for the qdrant backend")
		}
	default:
		return fmt.Errorf("unknown VECTOR_BACKEND %q", c.VectorBackend)
	}

	switch c.GraphBackend {
	case GraphNeo4j, GraphMemory:
	case GraphSQLite, GraphPostgres:
		if c.DBURL == "" {
			return fmt.Errorf("DB_URL is required for the %s backend", c.GraphBackend)
		}
	default:
		return fmt.Errorf("unknown GRAPH_BACKEND %q", c.GraphBackend)
	}

	if c.TopK <= 0 || c.GraphResultLimit <= 0 || c.IngestMaxChunks <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K, GRAPH_RESULT_LIMIT and INGEST_MAX_CHUNKS must be positive")
	}
	return nil
}

// SetupLogging configures logrus the same way for every command.
func (c *Config) SetupLogging() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.WithField("level", c.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
