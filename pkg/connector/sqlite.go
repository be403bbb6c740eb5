// pkg/connector/sqlite.go
package connector

import (
	"strings"

	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied by the driver to every connection it opens
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"foreign_keys(1)",
}

// sqliteDSN appends the connection pragmas to a sqlite file path
func sqliteDSN(path string) string {
	params := make([]string, len(sqlitePragmas))
	for i, p := range sqlitePragmas {
		params[i] = "_pragma=" + p
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}
