package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	GitHub     GitHubConfig
	Governance GovernanceConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	Path string
}

type GitHubConfig struct {
	Token string
	// Repository is the "owner/repo" identity this process runs inside.
	Repository string
	// CanonicalRepository is the only identity allowed to mutate
	// governance state. Forks and mirrors must never sync.
	CanonicalRepository string
}

type GovernanceConfig struct {
	// WorkDir is the checkout root holding the governance documents.
	WorkDir         string
	RegistryPath    string
	BotRegistryPath string
	HistoryDir      string
	BotHistoryDir   string
	LedgerPath      string
	BotLedgerPath   string
	CodeownersPath  string

	// RoleHierarchy is ordered lowest tier first.
	RoleHierarchy  []string
	ProtectedRoles []string
	DefaultTeam    string
	SystemIdentity string
	InactivityDays int
}

// Load loads configuration from .env file and environment variables.
// The returned Config is built once in main and passed into components;
// nothing reads it as ambient state.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 15),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./steward.db"),
		},
		GitHub: GitHubConfig{
			Token:               getEnv("GITHUB_TOKEN", ""),
			Repository:          getEnv("GITHUB_REPOSITORY", ""),
			CanonicalRepository: getEnv("CANONICAL_REPOSITORY", "LF-Decentralized-Trust-labs/gitmesh"),
		},
		Governance: GovernanceConfig{
			WorkDir:         getEnv("GOVERNANCE_WORKDIR", "."),
			RegistryPath:    "governance/contributors.yaml",
			BotRegistryPath: "governance/bots.yaml",
			HistoryDir:      "governance/history/users",
			BotHistoryDir:   "governance/history/bots",
			LedgerPath:      "governance/history/ledger.yaml",
			BotLedgerPath:   "governance/history/bot_ledger.yaml",
			CodeownersPath:  ".github/CODEOWNERS",
			RoleHierarchy: []string{
				"Newbie Contributor",
				"Active Contributor",
				"Core Contributor",
				"Principal Contributor",
				"Maintainer",
			},
			ProtectedRoles: []string{"CEO", "CTO"},
			DefaultTeam:    getEnv("GOVERNANCE_TEAM", "CE"),
			SystemIdentity: "GitMesh-Steward-bot",
			InactivityDays: getEnvAsInt("INACTIVITY_DAYS", 90),
		},
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
