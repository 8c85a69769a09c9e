// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files, a
// .env file, and the environment. Each file in the directory represents
// one secret: the filename is the key name and the file contents
// (trimmed) are the value.
//
// Supported key files: tavily-api-key, anthropic-api-key, gemini-api-key.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// ErrMissingKey reports that a credential required by the configuration is absent.
var ErrMissingKey = errors.New("missing API key")

// Key file names and their environment variable fallbacks.
const (
	TavilyKeyFile    = "tavily-api-key"
	AnthropicKeyFile = "anthropic-api-key"
	GeminiKeyFile    = "gemini-api-key"

	TavilyEnv    = "TAVILY_API_KEY"
	AnthropicEnv = "ANTHROPIC_API_KEY"
	GeminiEnv    = "GEMINI_API_KEY"
)

// Credentials holds the resolved keys. It is passed explicitly into the
// collaborators that need it.
type Credentials struct {
	Tavily    string
	Anthropic string
	Gemini    string
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings on logger (nil = discard) and skipped.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Resolve builds Credentials from the secrets directory, falling back to
// the environment for keys without a file. envFile, when it exists, is
// loaded into the environment first without overriding variables that
// are already set. Empty envFile skips the .env step.
func Resolve(dir, envFile string, logger *zap.Logger) (Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Credentials{}, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	files, err := Load(dir, logger)
	if err != nil {
		return Credentials{}, err
	}

	pick := func(file, env string) string {
		if v := files[file]; v != "" {
			return v
		}
		return strings.TrimSpace(os.Getenv(env))
	}

	return Credentials{
		Tavily:    pick(TavilyKeyFile, TavilyEnv),
		Anthropic: pick(AnthropicKeyFile, AnthropicEnv),
		Gemini:    pick(GeminiKeyFile, GeminiEnv),
	}, nil
}
