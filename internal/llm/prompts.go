package llm

// Prompt templates for each task type. Content is appended after the
// template; Instructions (when present) carry per-call grounding context.
const (
	// AnalysisPromptTemplate frames the single-article Pass 1 scoring call.
	AnalysisPromptTemplate = `Analyze the following news article for UPSC Civil Services exam preparation.

Score upsc_relevance from 0-100 considering current affairs importance, syllabus coverage, and question potential for both Prelims and Mains. List relevant_papers (GS1, GS2, GS3, GS4, Essay) in order of relevance. Extract 3-8 key_topics central to the article. Write a 2-3 sentence summary.

Article:
%s`

	// BatchAnalysisPromptTemplate frames a multi-article scoring call. Each
	// result must echo the article_id it was given so scores can be joined
	// back to articles.
	BatchAnalysisPromptTemplate = `Analyze each of the following news articles independently for UPSC Civil Services exam preparation.

For every article, return its article_id unchanged, an upsc_relevance score from 0-100, relevant_papers (GS1, GS2, GS3, GS4, Essay), 3-8 key_topics, and a 1-2 sentence summary. Score each article on its own merits; do not let its position in the list influence the score.

Articles (JSON):
%s`

	// CardPromptTemplate frames the Pass 2 knowledge-card generation call.
	// Only four layers are requested; the connections layer is assembled
	// from verified data outside the model.
	CardPromptTemplate = `Create a UPSC knowledge card from the following article.

Produce:
- headline_layer: one crisp exam-oriented headline (max 120 chars)
- facts_layer: at least 5 concrete, verifiable facts from the article
- context_layer: background a serious aspirant needs to place this story
- mains_angle_layer: how this could be framed as a Mains question, with the analytical angle to take

Use the grounding context below; do not invent cross-references.

%s

Article:
%s`

	// TournamentPromptTemplate frames the one-call ranking of a candidate
	// pool down to a fixed-size daily selection.
	TournamentPromptTemplate = `%s

Candidate pool (JSON):
%s`
)
