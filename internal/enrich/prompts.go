package enrich

// Instructions sent as the system message. The document goes in the user message.
const (
	categoryInstruction = "Categorize the following document into one of these categories: Financial, Medical, Legal, Educational, or Others. Respond with only the category name."

	subCategoryInstruction = "Determine the most relevant sub-category from the following list. Respond with only the sub-category name: invoice, tax, bank statement, salary, transaction, prescription, lab report, diagnosis, discharge, patient, contract, court, affidavit, patent, law, certificate, marksheet, research, academic, resume."

	summaryInstruction = "Summarize the following document in a few words."

	queriesInstruction = "Generate 6 relevant questions based on the document's content."

	answerInstruction = "Answer the user's question based on the provided document text."
)

func documentMessage(text string) string {
	return "Document text: " + text
}

func questionMessage(text, question string) string {
	return "Document: " + text + "\nQuestion: " + question
}
