package domain

// ScoredCandidate — результат ранжирования одного товара относительно запроса.
// Живёт только в рамках одного поискового запроса, никуда не сохраняется.
type ScoredCandidate struct {
	ProductID  string
	Similarity float64 // косинусная близость, для визуальных эмбеддингов ожидается в [0,1]
	Rank       int     // позиция в выдаче, нумерация с единицы
}

// ResultRecord объединяет оценку кандидата с полными атрибутами товара.
type ResultRecord struct {
	Product    Product
	Similarity float64
	Rank       int
}
