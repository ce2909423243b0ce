// Package adminview models the admin console's view/navigation state
// as an explicit finite state object with pure transitions, so every
// screen change is unit-testable without rendering anything.
package adminview

import "toasthub/internal/models"

// Tab is a top-level admin console tab.
type Tab string

const (
	TabOverview     Tab = "overview"
	TabBrief        Tab = "brief"
	TabPortals      Tab = "portals"
	TabContacts     Tab = "contacts"
	TabTickets      Tab = "tickets"
	TabEmail        Tab = "email"
	TabIntelligence Tab = "intelligence"
	TabTools        Tab = "tools"
	TabConfig       Tab = "config"
)

// ContactSubTab selects the pane inside the Contacts tab.
type ContactSubTab string

const (
	ContactClients ContactSubTab = "clients"
	ContactReps    ContactSubTab = "reps"
	ContactLeads   ContactSubTab = "leads"
)

// EmailSubTab selects the pane inside the Email tab.
type EmailSubTab string

const (
	EmailCampaigns   EmailSubTab = "campaigns"
	EmailSubscribers EmailSubTab = "subscribers"
	EmailSegments    EmailSubTab = "segments"
	EmailAnalytics   EmailSubTab = "analytics"
	EmailABTesting   EmailSubTab = "ab-testing"
	EmailEnrollment  EmailSubTab = "enrollment"
	EmailErrors      EmailSubTab = "errors"
	EmailSchedule    EmailSubTab = "schedule"
	EmailResponses   EmailSubTab = "responses"
)

// ClientView is the active sub-view of the client pane.
type ClientView string

const (
	ClientList       ClientView = "list"
	ClientForm       ClientView = "form"
	ClientProfile360 ClientView = "profile360"
)

// RepView is the active sub-view of the rep pane. Reps have no
// detail view; selecting one goes straight to the form.
type RepView string

const (
	RepList RepView = "list"
	RepForm RepView = "form"
)

// State is the whole console view state. It is a value type: Reduce
// returns a new State and never mutates its input.
type State struct {
	ActiveTab  Tab
	TabLoading bool

	ContactSubTab ContactSubTab
	EmailSubTab   EmailSubTab

	ClientView     ClientView
	RepView        RepView
	SelectedClient *models.Client
	SelectedRep    *models.Rep

	// Invoice modal state is orthogonal to tab navigation.
	InvoiceModalOpen bool
	InvoiceClientID  string
}

// NewState returns the state the console opens with.
func NewState() State {
	return State{
		ActiveTab:     TabOverview,
		ContactSubTab: ContactClients,
		EmailSubTab:   EmailCampaigns,
		ClientView:    ClientList,
		RepView:       RepList,
	}
}

// Action is a view-state transition input.
type Action interface{ isAction() }

type (
	// ChangeTab switches the top-level tab. Same-tab changes are a
	// no-op: no loading flash, no resets.
	ChangeTab struct{ Tab Tab }

	// TabLoaded clears the transient loading flag.
	TabLoaded struct{}

	// SelectClient opens the profile360 detail view for a client.
	SelectClient struct{ Client *models.Client }

	// NewClient opens the client form in create mode (nil selection).
	NewClient struct{}

	// ClientSaved returns to the list after a successful save.
	ClientSaved struct{}

	// SelectRep opens the rep form in edit mode.
	SelectRep struct{ Rep *models.Rep }

	// NewRep opens the rep form in create mode.
	NewRep struct{}

	// RepSaved returns to the list after a successful save.
	RepSaved struct{}

	SetContactSubTab struct{ SubTab ContactSubTab }
	SetEmailSubTab   struct{ SubTab EmailSubTab }

	// OpenInvoice opens the invoice modal, optionally pre-targeting
	// a client.
	OpenInvoice  struct{ ClientID string }
	CloseInvoice struct{}
)

func (ChangeTab) isAction()        {}
func (TabLoaded) isAction()        {}
func (SelectClient) isAction()     {}
func (NewClient) isAction()        {}
func (ClientSaved) isAction()      {}
func (SelectRep) isAction()        {}
func (NewRep) isAction()           {}
func (RepSaved) isAction()         {}
func (SetContactSubTab) isAction() {}
func (SetEmailSubTab) isAction()   {}
func (OpenInvoice) isAction()      {}
func (CloseInvoice) isAction()     {}

// Reduce applies one action. Entering Contacts always resets both
// panes to their lists and drops any selection, so stale edit state
// can never survive a tab switch.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case ChangeTab:
		if act.Tab == s.ActiveTab {
			return s
		}
		s.ActiveTab = act.Tab
		s.TabLoading = true
		if act.Tab == TabContacts {
			s.ClientView = ClientList
			s.RepView = RepList
			s.SelectedClient = nil
			s.SelectedRep = nil
		}
		return s

	case TabLoaded:
		s.TabLoading = false
		return s

	case SelectClient:
		s.SelectedClient = act.Client
		s.ClientView = ClientProfile360
		return s

	case NewClient:
		s.SelectedClient = nil
		s.ClientView = ClientForm
		return s

	case ClientSaved:
		s.SelectedClient = nil
		s.ClientView = ClientList
		return s

	case SelectRep:
		s.SelectedRep = act.Rep
		s.RepView = RepForm
		return s

	case NewRep:
		s.SelectedRep = nil
		s.RepView = RepForm
		return s

	case RepSaved:
		s.SelectedRep = nil
		s.RepView = RepList
		return s

	case SetContactSubTab:
		s.ContactSubTab = act.SubTab
		return s

	case SetEmailSubTab:
		s.EmailSubTab = act.SubTab
		return s

	case OpenInvoice:
		s.InvoiceModalOpen = true
		s.InvoiceClientID = act.ClientID
		return s

	case CloseInvoice:
		s.InvoiceModalOpen = false
		s.InvoiceClientID = ""
		return s
	}
	return s
}
