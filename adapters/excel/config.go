package excel

// ReaderConfig holds options for reading delimited and workbook files
type ReaderConfig struct {
	// Encoding of delimited files: "utf-8" (default) or "latin1"
	Encoding string `json:"encoding"`
	// Delimiter overrides sniffing when non-zero
	Delimiter rune `json:"delimiter"`
	// Sheet names the workbook sheet; empty means the first sheet
	Sheet string `json:"sheet"`
}

// DefaultReaderConfig returns sensible defaults for file reading
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{Encoding: "utf-8"}
}
