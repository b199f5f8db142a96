/*******************************************************************************
 * Copyright (c) 2025 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	EnvVarDBDir  = "CONTAMINAS_DB_DIR"
	EnvVarUser   = "CONTAMINAS_SQL_USER"
	EnvVarPass   = "CONTAMINAS_SQL_PASS"
	EnvVarHost   = "CONTAMINAS_SQL_HOST"
	EnvVarPort   = "CONTAMINAS_SQL_PORT"
	EnvVarDBName = "CONTAMINAS_SQL_DB"

	defaultDBDirBasename = ".contaminas_db"
)

type Error string

func (e Error) Error() string { return string(e) }

const ErrPartialLIMSEnvs = Error("some but not all CONTAMINAS_SQL_* environment variables set")

// LIMS holds the connection details for the optional LIMS database that
// records the expected organism for each sample.
type LIMS struct {
	User     string
	Password string
	Host     string
	Port     string
	DBName   string
}

type Config struct {
	DatabaseDir string

	// LIMS is nil when no CONTAMINAS_SQL_* environment variables are set.
	LIMS *LIMS
}

// FromEnv returns a new Config with properties populated from environment
// variables CONTAMINAS_*, where * is amongst: DB_DIR, SQL_USER, SQL_PASS,
// SQL_HOST, SQL_PORT and SQL_DB.
//
// If these environment variables are defined in a file called .env (and not
// previously set in an environment variable), they will be automatically
// loaded.
//
// DB_DIR defaults to ~/.contaminas_db when unset. The SQL_* variables are
// optional, but must be set as a complete group or not at all.
//
// Optionally supply a directory to look for the .env file in.
func FromEnv(dir ...string) (*Config, error) {
	var parentDir string
	if len(dir) == 1 {
		parentDir = dir[0] + string(os.PathSeparator)
	}

	godotenv.Load(parentDir + ".env")

	c := &Config{DatabaseDir: databaseDirFromEnv()}

	lims, err := limsFromEnv()
	if err != nil {
		return nil, err
	}

	c.LIMS = lims

	return c, nil
}

func databaseDirFromEnv() string {
	if dir := os.Getenv(EnvVarDBDir); dir != "" {
		return dir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDBDirBasename
	}

	return filepath.Join(home, defaultDBDirBasename)
}

func limsFromEnv() (*LIMS, error) {
	user := os.Getenv(EnvVarUser)
	pass := os.Getenv(EnvVarPass)
	host := os.Getenv(EnvVarHost)
	port := os.Getenv(EnvVarPort)
	dbname := os.Getenv(EnvVarDBName)

	if user == "" && pass == "" && host == "" && port == "" && dbname == "" {
		return nil, nil
	}

	if user == "" || pass == "" || host == "" || port == "" || dbname == "" {
		return nil, ErrPartialLIMSEnvs
	}

	return &LIMS{
		User:     user,
		Password: pass,
		Host:     host,
		Port:     port,
		DBName:   dbname,
	}, nil
}
