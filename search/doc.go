/*
Package search compiles structured company searches into DuckDB queries.

A FilterRequest is a flat set of optional constraints. Each supplied,
non-blank field contributes one condition and the conditions are AND-joined:

	SELECT * FROM companies WHERE 1=1
	  AND company_name ILIKE '%acme%'
	  AND foundation_year BETWEEN 2000 AND 2010
	ORDER BY company_name LIMIT 1000

(The real output is a single line.)

# Ranking

A purpose_text filter calls the full-text relevance function created by the
fts extension. The call both filters (non-null score) and orders the result:

	SELECT *, fts_main_companies.match_bm25(company_id, 'software') AS relevance_score
	FROM companies WHERE 1=1 AND fts_main_companies.match_bm25(company_id, 'software') IS NOT NULL
	ORDER BY fts_main_companies.match_bm25(company_id, 'software') DESC, company_name ASC LIMIT 1000

# Financial ranges

revenue_range and employee_range match when any financial year holds a value
within the bounds. The check enumerates every year of the schema catalog, so
years without data are never skipped silently:

	(TRY_CAST(financial_data['2016']['revenue'] AS DOUBLE) BETWEEN 1000000 AND 5000000
	  OR ... OR TRY_CAST(financial_data['2024']['revenue'] AS DOUBLE) BETWEEN 1000000 AND 5000000)

The flattened layout reads the same values with json_extract_string.

# Safety

Names and categories containing quotes, semicolons or comment markers are
rejected. Every interpolated literal is quote-escaped regardless. With
Options.BindParameters set, scalar comparison values are emitted as ?
placeholders and returned in Query.Args.
*/
package search
