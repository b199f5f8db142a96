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

// package lims looks up the organism a sample was submitted as, so that a
// screened genus can be sanity-checked against what the lab expected to
// sequence. The lookup is optional; runs without LIMS configuration skip
// it entirely.

package lims

import (
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/wtsi-hgi/contaminas/config"
)

const (
	sqlDriverName   = "mysql"
	sqlNetwork      = "tcp"
	connMaxLifetime = time.Minute * 3
	maxOpenConns    = 10
	maxIdleConns    = 10
)

// LIMS is a connection to the LIMS warehouse database.
type LIMS struct {
	pool *sql.DB
}

// MySQLConfigFromConfig converts our config to the driver's.
func MySQLConfigFromConfig(c *config.Config) *mysql.Config {
	conf := mysql.NewConfig()
	conf.User = c.LIMS.User
	conf.Passwd = c.LIMS.Password
	conf.Net = sqlNetwork
	conf.Addr = c.LIMS.Host + ":" + c.LIMS.Port
	conf.DBName = c.LIMS.DBName

	return conf
}

// New returns a new LIMS connection using mysql.Config that you can get
// from MySQLConfigFromConfig(config.FromEnv()).
func New(c *mysql.Config) (*LIMS, error) {
	pool, err := sql.Open(sqlDriverName, c.FormatDSN())
	if err != nil {
		return nil, err
	}

	pool.SetConnMaxLifetime(connMaxLifetime)
	pool.SetMaxOpenConns(maxOpenConns)
	pool.SetMaxIdleConns(maxIdleConns)

	return &LIMS{pool: pool}, pool.Ping()
}

const getOrganism = `
SELECT sa.common_name
FROM sample sa
WHERE sa.supplier_name = ?
ORDER BY sa.last_updated DESC
LIMIT 1
`

// ExpectedOrganism returns the organism recorded for the sample with the
// given supplier name, or blank when the LIMS has no record of it.
func (l *LIMS) ExpectedOrganism(sampleName string) (string, error) {
	var organism sql.NullString

	err := l.pool.QueryRow(getOrganism, sampleName).Scan(&organism)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return organism.String, nil
}

// ExpectedOrganisms returns the recorded organism for each of the given
// sample names; names the LIMS does not know are absent from the result.
func (l *LIMS) ExpectedOrganisms(sampleNames []string) (map[string]string, error) {
	organisms := make(map[string]string, len(sampleNames))

	for _, name := range sampleNames {
		organism, err := l.ExpectedOrganism(name)
		if err != nil {
			return nil, err
		}

		if organism != "" {
			organisms[name] = organism
		}
	}

	return organisms, nil
}

// Close closes the connection to the LIMS.
func (l *LIMS) Close() error {
	return l.pool.Close()
}
