package domain

// Conversation is the derived inbox entry for one partner. It is never
// stored: it is recomputed from the message log on demand.
type Conversation struct {
	PartnerID   string  `json:"partnerId"`
	LastMessage Message `json:"lastMessage"`
	UnreadCount int     `json:"unreadCount"`
}

// AggregateConversations folds a reverse-chronological scan of the messages
// involving userID into one entry per distinct partner. The input must be
// ordered newest first (ties already broken by higher message id), so the
// first message seen for a partner is its latest and the output keeps the
// "last message descending" order for free. Unread counts only messages the
// partner sent that userID has not acknowledged yet.
func AggregateConversations(userID string, newestFirst []Message) []Conversation {
	index := make(map[string]int)
	var conversations []Conversation
	for _, m := range newestFirst {
		partner := m.PartnerOf(userID)
		i, seen := index[partner]
		if !seen {
			index[partner] = len(conversations)
			i = len(conversations)
			conversations = append(conversations, Conversation{PartnerID: partner, LastMessage: m})
		}
		if m.ReceiverID == userID && !m.Read {
			conversations[i].UnreadCount++
		}
	}
	return conversations
}
