// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and contact details for the search and model
// APIs. Values come from three places, highest precedence first:
//
//  1. a directory of plain-text files (filename is the key, trimmed contents the value),
//  2. the process environment (OPENAI_API_KEY and friends),
//  3. a .env file.
//
// Known keys: openai-api-key, anthropic-api-key, gemini-api-key, ncbi-api-key,
// semantic-scholar-api-key, openalex-email.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Secret key names.
const (
	OpenAIKey     = "openai-api-key"
	AnthropicKey  = "anthropic-api-key"
	GeminiKey     = "gemini-api-key"
	NCBIKey       = "ncbi-api-key"
	OpenAlexEmail = "openalex-email"

	SemanticScholarKey = "semantic-scholar-api-key"
)

// envNames maps each key to the environment variable that may also carry it.
var envNames = map[string]string{
	OpenAIKey:     "OPENAI_API_KEY",
	AnthropicKey:  "ANTHROPIC_API_KEY",
	GeminiKey:     "GEMINI_API_KEY",
	NCBIKey:       "NCBI_API_KEY",
	OpenAlexEmail: "OPENALEX_EMAIL",

	SemanticScholarKey: "SEMANTIC_SCHOLAR_API_KEY",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map.
// Unreadable files are logged through the context logger and skipped.
func Load(ctx context.Context, dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// LoadAll merges the secrets directory, the environment and the .env file at
// dotenv. Only known keys are taken from the environment and the .env file.
// A missing .env file is not an error.
func LoadAll(ctx context.Context, dir, dotenv string) (map[string]string, error) {
	fileEnv := map[string]string{}
	if dotenv != "" {
		env, err := godotenv.Read(dotenv)
		switch {
		case err == nil:
			fileEnv = env
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading %s: %w", dotenv, err)
		}
	}

	merged := make(map[string]string)
	for key, envName := range envNames {
		if v := strings.TrimSpace(fileEnv[envName]); v != "" {
			merged[key] = v
		}
		if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
			merged[key] = v
		}
	}

	fromDir, err := Load(ctx, dir)
	if err != nil {
		return nil, err
	}
	for k, v := range fromDir {
		merged[k] = v
	}
	return merged, nil
}
