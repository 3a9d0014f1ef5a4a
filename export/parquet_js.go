//go:build js

package export

import (
	"errors"

	fitenergy "github.com/lucasjlepore/fit-energy"
)

// ParquetAvailable reports whether this build can write parquet tables.
const ParquetAvailable = false

var errNoParquet = errors.New("parquet output is not supported in this build")

func WriteParquetFile(string, fitenergy.Series) error {
	return errNoParquet
}

func MarshalParquet(fitenergy.Series) ([]byte, error) {
	return nil, errNoParquet
}

func ReadParquetFile(string) (fitenergy.Series, error) {
	return nil, errNoParquet
}
