package entity

// StockLevel lectura de un contador con su versión para escritura optimista (compare-and-set).
type StockLevel struct {
	Quantity int64
	Version  int64
}
