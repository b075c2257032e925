package telegram

import (
	"fmt"
	"html"
	"strings"

	"bookMarketBot/internal/domain/models"
)

// formatBookSummary собирает многострочную карточку книги (HTML parse mode)
func formatBookSummary(book *models.Book) string {
	author := "Unknown"
	if book.Author != nil && *book.Author != "" {
		author = *book.Author
	}

	seller := "Unknown"
	if book.Seller != nil {
		seller = book.Seller.PublicDisplay()
	}

	listed := "—"
	if !book.CreatedAt.IsZero() {
		listed = book.CreatedAt.UTC().Format("2006-01-02 15:04") + " UTC"
	}

	return fmt.Sprintf(
		"<b>%s</b>\nAuthor: %s\nCondition: %s\nPrice: %s\nListed: %s\nSeller: %s\nBook ID: %d",
		html.EscapeString(book.Title),
		html.EscapeString(author),
		book.Condition.Label(),
		book.Price,
		listed,
		html.EscapeString(seller),
		book.ID,
	)
}

// formatPreview — сводка черновика перед подтверждением публикации
func formatPreview(draft models.BookDraft) string {
	author := "Unknown"
	if draft.Author != nil && *draft.Author != "" {
		author = *draft.Author
	}

	description := "—"
	if draft.Description != nil && *draft.Description != "" {
		description = *draft.Description
	}

	var b strings.Builder
	b.WriteString("Please confirm your listing:\n\n")
	fmt.Fprintf(&b, "Title: %s\n", draft.Title)
	fmt.Fprintf(&b, "Author: %s\n", author)
	fmt.Fprintf(&b, "Condition: %s\n", draft.Condition.Label())
	fmt.Fprintf(&b, "Price: %s\n", draft.Price)
	fmt.Fprintf(&b, "Description: %s", description)

	return b.String()
}

func formatBrowsePage(books []models.Book, page, totalPages int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📚 Page %d/%d", page, totalPages)
	writeBookList(&b, books)
	return b.String()
}

func formatSearchPage(books []models.Book, query string, page, totalPages int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Search results for '<b>%s</b>' - Page %d/%d", html.EscapeString(query), page, totalPages)
	writeBookList(&b, books)
	return b.String()
}

func formatMyListings(books []models.Book) string {
	var b strings.Builder
	b.WriteString("📚 Your active listings:")
	for i := range books {
		fmt.Fprintf(&b, "\n\nID #%d\n%s", books[i].ID, formatBookSummary(&books[i]))
	}
	return b.String()
}

func writeBookList(b *strings.Builder, books []models.Book) {
	for i := range books {
		fmt.Fprintf(b, "\n\n#%d\n%s", i+1, formatBookSummary(&books[i]))
	}
}
