package tool

import "fmt"

// Deps are the external collaborators the tool catalog is wired to.
type Deps struct {
	Events    EventSearcher
	Enquiries EnquiryBackend
	Notifier  MerchantNotifier
	// BaseURL is the public site root used to build event links.
	BaseURL string
}

// NewCatalog builds the registry with the full tool set in the order
// tools are described to the model.
func NewCatalog(deps Deps) (*Registry, error) {
	docs, ids, err := loadKnowledgeDocs()
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	return NewRegistry(
		newSearchEventTool(deps.Events, deps.BaseURL),
		newDocumentSummaryTool(docs, ids),
		newDocumentDetailTool(docs),
		newTicketInfoTool(),
		newMembershipInfoTool(),
		newGeneralHelpTool(),
		newBookingEnquiryTool(deps.Enquiries, deps.Notifier),
		newThinkingTool(),
	)
}
