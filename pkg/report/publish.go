// pkg/report/publish.go
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/David-Botos/cyberattack-ingress/pkg/dataio"
	"github.com/David-Botos/cyberattack-ingress/pkg/model"
)

// StaticPrefix is the URL path the chart directory is served under
const StaticPrefix = "/static/eda/"

// Publish writes every chart of the report as <name>.json into dir and
// returns the public URL of each chart by name
func Publish(report *Report, dir, baseURL string) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, model.NewError(model.ErrorKindOutput, "publish", dir, err)
	}

	baseURL = strings.TrimRight(baseURL, "/")
	urls := make(map[string]string, len(report.Charts))
	for i := range report.Charts {
		chart := report.Charts[i]
		path := filepath.Join(dir, chart.Name+".json")
		err := dataio.WriteAtomic(path, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "    ")
			return enc.Encode(chart)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to publish chart %s: %w", chart.Name, err)
		}
		urls[chart.Name] = baseURL + StaticPrefix + chart.Name + ".json"
	}
	return urls, nil
}
