package devops

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

const DatabasesParameter = "databases"

type DBEntry struct {
	Name     string `yaml:"name" json:"name"`
	Driver   string `yaml:"driver" json:"driver"`
	Host     string `yaml:"host" json:"host"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// GetDSN renders a connection string for dbname in the entry's driver format.
func (db DBEntry) GetDSN(dbname string) string {
	switch db.Driver {
	case "postgres":
		host, port := db.Host, "5432"
		if h, p, ok := strings.Cut(db.Host, ":"); ok {
			host, port = h, p
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=require", host, port, db.Username, db.Password, dbname)
	default:
		host := db.Host
		if !strings.Contains(host, ":") {
			host = host + ":3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC", db.Username, db.Password, host, dbname)
	}
}

type parameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

var (
	once    sync.Once
	dbList  map[string]DBEntry
	loadErr error
)

// LoadDBConfig reads the "databases" SSM parameter once per process.
func LoadDBConfig(ctx context.Context) (map[string]DBEntry, error) {
	once.Do(func() {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			loadErr = fmt.Errorf("load aws config: %w", err)
			return
		}
		dbList, loadErr = loadDatabases(ctx, ssm.NewFromConfig(cfg))
	})

	return dbList, loadErr
}

func loadDatabases(ctx context.Context, client parameterGetter) (map[string]DBEntry, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(DatabasesParameter),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get parameter: %w", err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return nil, fmt.Errorf("parameter %s is empty", DatabasesParameter)
	}
	return ParseDatabases([]byte(*out.Parameter.Value))
}

// ParseDatabases decodes the YAML list, keyed by lower-cased name.
func ParseDatabases(data []byte) (map[string]DBEntry, error) {
	var parsed []DBEntry
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	result := make(map[string]DBEntry, len(parsed))
	for _, entry := range parsed {
		result[strings.ToLower(entry.Name)] = entry
	}
	return result, nil
}

// ResolveDSN looks name up in SSM and returns its driver and DSN.
func ResolveDSN(ctx context.Context, name string) (driver, dsn string, err error) {
	entries, err := LoadDBConfig(ctx)
	if err != nil {
		return "", "", err
	}
	entry, ok := entries[strings.ToLower(name)]
	if !ok {
		return "", "", fmt.Errorf("database %q not found in %s", name, DatabasesParameter)
	}
	driver = entry.Driver
	if driver == "" {
		driver = "mysql"
	}
	return driver, entry.GetDSN(name), nil
}
