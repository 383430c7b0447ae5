package util

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"testing"

	"github.com/joho/godotenv"
	"github.com/romana/rlog"
	sqlmock "gopkg.in/DATA-DOG/go-sqlmock.v1"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type ServerConfig struct {
	Postgres         DbConfig  `yaml:"postgres"`
	Postgres_replica *DbConfig `yaml:"postgres_replica,omitempty"`
	Server_port      int       `yaml:"server_port"`
}

func (c *ServerConfig) GetConf(fileName string) *ServerConfig {
	yamlFile, err := os.ReadFile(fileName)
	if err != nil {
		log.Printf("Read yaml file %s failed: %s ", fileName, err.Error())
	}
	err = yaml.Unmarshal(yamlFile, c)
	if err != nil {
		log.Fatalf("Unmarshal: %v", err)
	}

	return c
}

// LoadDotEnv loads provider credentials from .env when present. Missing file is
// fine, production deployments set real environment variables.
func LoadDotEnv() {
	if err := godotenv.Load(); err == nil {
		rlog.Info("Loaded environment from .env")
	}
}

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func IsAllowHttpMethod(methods []string, w http.ResponseWriter, r *http.Request) bool {
	for _, method := range methods {
		if method == r.Method {
			return true
		}
	}
	http.Error(w, "Not allow http method", http.StatusMethodNotAllowed)
	return false
}

func FetchReqObject(r *http.Request, reqObj interface{}) error {
	if r == nil {
		return errors.New("http request is nil")
	}
	reqBody, err := io.ReadAll(r.Body)
	if err != nil {
		errInfo := "Read request body failed" + err.Error()
		rlog.Error(errInfo)
		return errors.New(errInfo)
	}
	err = json.Unmarshal(reqBody, reqObj)
	if err != nil {
		errInfo := "Unmarshal request body failed" + err.Error()
		rlog.Error(errInfo)
		return errors.New(errInfo)
	}
	return nil
}

// WriteJson writes any payload with the given status code.
func WriteJson(w http.ResponseWriter, status int, payload interface{}) {
	respBody, err := json.Marshal(payload)
	if err != nil {
		rlog.Error("Marshal response failed: ", err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(respBody)
}

// WriteError writes the flat {success:false, error:...} envelope every handler uses.
func WriteError(w http.ResponseWriter, status int, errInfo string) {
	WriteJson(w, status, map[string]interface{}{"success": false, "error": errInfo})
}

// FlexId accepts a JSON string or number, clients send row ids and Firebase
// UIDs through the same fields.
type FlexId string

func (f *FlexId) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexId(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexId(n.String())
	return nil
}

func (f FlexId) String() string {
	return string(f)
}

// Int64 parses the id as a number, for endpoints that only take row ids.
func (f FlexId) Int64() (int64, error) {
	return strconv.ParseInt(string(f), 10, 64)
}

func GetStringPtr(s string) *string {
	return &s
}

func GetFloatPtr(f float64) *float64 {
	return &f
}

func GetIntPtr(i int) *int {
	return &i
}

func GetBoolPtr(b bool) *bool {
	return &b
}

// DbMock For unit test usage
func DbMock(t *testing.T) (*sql.DB, *gorm.DB, sqlmock.Sqlmock) {
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	gormdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqldb,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		t.Fatal(err)
	}

	return sqldb, gormdb, mock
}

// ObjectToRows For unit test usage
func ObjectToRows(object interface{}) (*sqlmock.Rows, error) {
	buf, err := json.Marshal(object)
	if err != nil {
		return nil, err
	}
	rowMap := make(map[string]interface{})
	err = json.Unmarshal(buf, &rowMap)
	if err != nil {
		return nil, err
	}
	columns := make([]string, 0)
	values := make([]driver.Value, 0)
	for k, v := range rowMap {
		columns = append(columns, k)
		values = append(values, v)
	}
	return sqlmock.NewRows(columns).AddRow(values...), nil
}
