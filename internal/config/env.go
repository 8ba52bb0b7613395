package affinity

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// LoadDotEnv подгружает .env, если он есть; переменные окружения не перезаписываются
func LoadDotEnv(logger *zap.Logger, files ...string) {
	if err := godotenv.Load(files...); err != nil {
		logger.Debug("no .env file, reading environment variables directly", zap.Error(err))
	}
}

// Обязательная переменная
func Env(name string) (string, error) {
	val := os.Getenv(name)
	if val == "" {
		return "", fmt.Errorf("env %s is not set", name)
	}
	return val, nil
}

// MustEnv - для main: без конфигурации не стартуем
func MustEnv(name string) string {
	val, err := Env(name)
	if err != nil {
		panic(err)
	}
	return val
}

// IntEnv - неотрицательное число из окружения; при пустом или неверном значении def
func IntEnv(name string, def int) int {
	val := os.Getenv(name)
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// CountEnv - размер пула или интервал, не меньше 1
func CountEnv(name string, def int) int {
	return max(IntEnv(name, def), 1)
}
