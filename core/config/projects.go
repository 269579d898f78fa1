package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SentryProject is the Sentry destination for notices sent with one Airbrake API key.
type SentryProject struct {
	ID       string `yaml:"id"`
	Platform string `yaml:"platform"`
	Key      string `yaml:"key"`
	Secret   string `yaml:"secret"`
}

// Projects maps an Airbrake API key to its Sentry project.
type Projects map[string]SentryProject

// Lookup returns the project configured for apiKey. A missing key is a normal
// outcome: notices for unmapped keys are only relayed to Airbrake.
func (p Projects) Lookup(apiKey string) (SentryProject, bool) {
	project, ok := p[apiKey]
	return project, ok
}

type projectsFile struct {
	Projects Projects `yaml:"projects"`
}

// LoadProjects reads the Sentry project map from a YAML file of the form
//
//	projects:
//	  <airbrake api key>:
//	    id: "2"
//	    platform: node
//	    key: <sentry public key>
//	    secret: <sentry secret key>
func LoadProjects(path string) (Projects, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sentry projects file: %w", err)
	}

	var file projectsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing sentry projects file: %w", err)
	}

	for apiKey, project := range file.Projects {
		if project.ID == "" || project.Key == "" || project.Secret == "" {
			return nil, fmt.Errorf("sentry project for api key %q needs id, key and secret", apiKey)
		}
	}

	if file.Projects == nil {
		return Projects{}, nil
	}
	return file.Projects, nil
}
