// FILE: locations/models.go

package locations

import "strconv"

// Location is a parking spot for bikes: an address with a total number of
// slots and the number currently reserved.
type Location struct {
	ID           string `json:"id,omitempty"`
	Endereco     string `json:"endereco"`
	Numero       string `json:"numero"`
	QtdTotais    int    `json:"qtdTotais"`
	QtdReservada int    `json:"qtdReservada"`
}

// Available reports whether at least one slot is still free. A location
// with every slot reserved (or over-reserved) is not available.
func (l Location) Available() bool {
	return l.QtdTotais > l.QtdReservada
}

// indexValues is the raw field view handed to the search analyzer.
func (l Location) indexValues() map[string]string {
	return map[string]string{
		"endereco":     l.Endereco,
		"numero":       l.Numero,
		"qtdTotais":    strconv.Itoa(l.QtdTotais),
		"qtdReservada": strconv.Itoa(l.QtdReservada),
	}
}
