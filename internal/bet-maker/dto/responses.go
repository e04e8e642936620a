package dto

// PlaceBetResponse é o corpo do 201 do POST /bets
type PlaceBetResponse struct {
	ID string `json:"id"`
}

// BetItem é um item da listagem paginada de apostas
type BetItem struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PaginatedBets é o corpo do GET /bets
type PaginatedBets struct {
	Items []BetItem `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Size  int       `json:"size"`
}

// MessageResponse envelopa respostas simples de texto
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse envelopa erros da API
type ErrorResponse struct {
	Error string `json:"error"`
}
