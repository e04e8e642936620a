package topics

const (
	// Tópico publicado pelo line-provider com mudanças de estado dos eventos
	EventUpdates = "line_provider"

	// Consumer group do bet-maker
	GroupBetMaker = "bet_maker"
)
