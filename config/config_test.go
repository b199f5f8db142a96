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
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const filePerm = 0644

func TestConfig(t *testing.T) {
	unsetAll := func() {
		for _, envVar := range []string{
			EnvVarDBDir, EnvVarUser, EnvVarPass, EnvVarHost, EnvVarPort, EnvVarDBName,
		} {
			os.Unsetenv(envVar)
		}
	}

	Convey("Given a full set of env vars, you can make a config", t, func() {
		unsetAll()

		testDBDir := "/path/to/dbs"
		testUser := "user"
		testPass := "pass"
		testHost := "host"
		testPort := "1234"
		testDBName := "db"

		os.Setenv(EnvVarDBDir, testDBDir)
		os.Setenv(EnvVarUser, testUser)
		os.Setenv(EnvVarPass, testPass)
		os.Setenv(EnvVarHost, testHost)
		os.Setenv(EnvVarPort, testPort)
		os.Setenv(EnvVarDBName, testDBName)

		config, err := FromEnv()
		So(err, ShouldBeNil)
		So(config, ShouldNotBeNil)
		So(config.DatabaseDir, ShouldEqual, testDBDir)
		So(config.LIMS, ShouldNotBeNil)
		So(config.LIMS.User, ShouldEqual, testUser)
		So(config.LIMS.Password, ShouldEqual, testPass)
		So(config.LIMS.Host, ShouldEqual, testHost)
		So(config.LIMS.Port, ShouldEqual, testPort)
		So(config.LIMS.DBName, ShouldEqual, testDBName)

		Convey("With a partial set of SQL env vars, FromEnv fails", func() {
			os.Setenv(EnvVarUser, "")

			config, err := FromEnv()
			So(err, ShouldEqual, ErrPartialLIMSEnvs)
			So(config, ShouldBeNil)
		})

		Convey("With no SQL env vars, the LIMS is unconfigured", func() {
			os.Setenv(EnvVarUser, "")
			os.Setenv(EnvVarPass, "")
			os.Setenv(EnvVarHost, "")
			os.Setenv(EnvVarPort, "")
			os.Setenv(EnvVarDBName, "")

			config, err := FromEnv()
			So(err, ShouldBeNil)
			So(config.LIMS, ShouldBeNil)
			So(config.DatabaseDir, ShouldEqual, testDBDir)
		})

		Convey("You can load values from an .env file", func() {
			os.Unsetenv(EnvVarUser)

			dir := t.TempDir()
			err := os.WriteFile(dir+string(os.PathSeparator)+".env",
				[]byte(EnvVarUser+"=fileuser\n"), filePerm)
			So(err, ShouldBeNil)

			config, err := FromEnv(dir)
			So(err, ShouldBeNil)
			So(config.LIMS, ShouldNotBeNil)
			So(config.LIMS.User, ShouldEqual, "fileuser")
			So(config.LIMS.DBName, ShouldEqual, testDBName)
		})
	})

	Convey("With no DB dir env var, the database dir has a home default", t, func() {
		unsetAll()

		config, err := FromEnv()
		So(err, ShouldBeNil)
		So(config.DatabaseDir, ShouldEndWith, ".contaminas_db")
	})
}
