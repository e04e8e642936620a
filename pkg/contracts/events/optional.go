package events

import "encoding/json"

// Optional marca explicitamente a presença de um campo no JSON recebido.
// Um campo ausente e um campo presente com valor null são coisas distintas
// no merge de eventos: ausente preserva o valor cacheado, null sobrescreve.
type Optional[T any] struct {
	present bool
	null    bool
	value   T
}

// Some cria um Optional presente com valor
func Some[T any](v T) Optional[T] {
	return Optional[T]{present: true, value: v}
}

// Null cria um Optional presente porém nulo
func Null[T any]() Optional[T] {
	return Optional[T]{present: true, null: true}
}

// Present informa se o campo veio no payload (com valor ou null)
func (o Optional[T]) Present() bool { return o.present }

// Get retorna o valor e true somente quando o campo veio com valor não nulo
func (o Optional[T]) Get() (T, bool) {
	if !o.present || o.null {
		var zero T
		return zero, false
	}
	return o.value, true
}

// IsZero habilita `json:",omitzero"`: campo ausente não é serializado
func (o Optional[T]) IsZero() bool { return !o.present }

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.present = true
	if string(b) == "null" {
		o.null = true
		var zero T
		o.value = zero
		return nil
	}
	o.null = false
	return json.Unmarshal(b, &o.value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.present || o.null {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
