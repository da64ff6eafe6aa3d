package storage

const (
	selectCategories = `
SELECT id, code, name, level, sort_order, parent_id, type, formula, weight, format
FROM categories
WHERE company = ?
ORDER BY position`

	deleteCategories = `DELETE FROM categories WHERE company = ?`

	insertCategory = `
INSERT INTO categories (company, id, position, code, name, level, sort_order, parent_id, type, formula, weight, format)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertFact = `INSERT INTO facts (company, code, fact_date, amount) VALUES (?, ?, ?, ?)`

	insertFactDimension = `INSERT INTO fact_dimensions (fact_id, dim_key, dim_value) VALUES (?, ?, ?)`

	sumFacts = `
SELECT SUM(amount)
FROM facts
WHERE company = ? AND code = ? AND fact_date BETWEEN ? AND ?`

	sumFactsByDimension = `
SELECT SUM(f.amount)
FROM facts f
WHERE f.company = ? AND f.code = ? AND f.fact_date BETWEEN ? AND ?
  AND EXISTS (
    SELECT 1 FROM fact_dimensions d
    WHERE d.fact_id = f.id AND d.dim_key = ? AND d.dim_value = ?
  )`
)
