package config

type Database struct{}

var _ DatabaseConfig = Database{}

func (Database) GetDBPath() string {
	return GetEnv("DB_PATH", "./data/brokenrx.db")
}
