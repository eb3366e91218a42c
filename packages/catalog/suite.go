package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/binprobe/packages/httpx"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// SuiteFile is the YAML layout for user-defined scenarios. Paths are joined
// onto the run's base URL, so suites stay portable across targets.
type SuiteFile struct {
	Suite     string          `yaml:"suite"`
	Scenarios []SuiteScenario `yaml:"scenarios"`
}

type SuiteScenario struct {
	Name    string            `yaml:"name"`
	Method  string            `yaml:"method"`
	Path    string            `yaml:"path"`
	Headers map[string]string `yaml:"headers"`
	Query   map[string]string `yaml:"query"`
	Body    string            `yaml:"body"`
	Upload  []SuiteUpload     `yaml:"upload"`
	Expect  SuiteExpect       `yaml:"expect"`
}

// SuiteUpload is one multipart part. Value holds inline content; Path reads
// the content from a file resolved relative to the suite file, which keeps
// fixture files next to the suite that uses them.
type SuiteUpload struct {
	Field    string `yaml:"field"`
	Value    string `yaml:"value"`
	Path     string `yaml:"path"`
	Filename string `yaml:"filename"`
}

type SuiteExpect struct {
	Status   int               `yaml:"status"`
	JSON     map[string]string `yaml:"json"`
	Contains string            `yaml:"contains"`
}

// LoadSuite reads a YAML suite file and converts it into scenarios.
func LoadSuite(path string) ([]*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite file: %w", err)
	}

	var file SuiteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing suite file: %w", err)
	}

	group := file.Suite
	if group == "" {
		group = "suite"
	}

	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("suite file %s defines no scenarios", path)
	}

	baseDir := filepath.Dir(path)
	scenarios := make([]*Scenario, 0, len(file.Scenarios))
	for i, sc := range file.Scenarios {
		scenario, err := buildSuiteScenario(group, baseDir, i, sc)
		if err != nil {
			return nil, fmt.Errorf("suite scenario %d (%s): %w", i+1, sc.Name, err)
		}
		scenarios = append(scenarios, scenario)
	}

	return scenarios, nil
}

func buildSuiteScenario(group, baseDir string, index int, sc SuiteScenario) (*Scenario, error) {
	if sc.Path == "" {
		return nil, fmt.Errorf("missing path")
	}
	if !strings.HasPrefix(sc.Path, "/") {
		return nil, fmt.Errorf("path must start with /")
	}
	for _, up := range sc.Upload {
		if up.Field == "" {
			return nil, fmt.Errorf("upload entry missing field")
		}
	}

	method := strings.ToUpper(sc.Method)
	if method == "" {
		method = "GET"
	}

	name := sc.Name
	if name == "" {
		name = fmt.Sprintf("%s %s", method, sc.Path)
	}

	id := fmt.Sprintf("%s/%s", group, slugify(name))
	expect := sc.Expect
	if expect.Status == 0 {
		expect.Status = 200
	}

	run := func(ctx context.Context, env *Env) error {
		req := httpx.NewRequest(method, env.URL(sc.Path))
		for k, v := range sc.Headers {
			req.SetHeader(k, v)
		}
		for k, v := range sc.Query {
			req.SetQueryParam(k, v)
		}
		req.Body = sc.Body

		if len(sc.Upload) > 0 {
			req.BaseDir = baseDir
			for _, up := range sc.Upload {
				switch {
				case up.Path != "":
					req.AddFilePath(up.Field, up.Path)
				case up.Filename != "":
					req.AddFileField(up.Field, up.Filename, "", up.Value)
				default:
					req.AddFormField(up.Field, up.Value)
				}
			}
		}

		resp, err := env.Client.Do(ctx, req)
		if err != nil {
			return err
		}

		if err := requireStatus(resp, expect.Status); err != nil {
			return err
		}

		for path, want := range expect.JSON {
			val := gjson.GetBytes(resp.Body, path)
			if !val.Exists() {
				return checkFailf("response JSON missing %q", path)
			}
			if val.String() != want {
				return checkFailf("%s: expected %q, got %q", path, want, val.String())
			}
		}

		if expect.Contains != "" && !strings.Contains(resp.BodyString(), expect.Contains) {
			return checkFailf("response body does not contain %q", expect.Contains)
		}

		return nil
	}

	return &Scenario{
		ID:    id,
		Group: group,
		Name:  name,
		Run:   run,
	}, nil
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
