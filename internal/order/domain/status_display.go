package domain

// StatusDisplay is the presentational mapping for a status: label, icon
// identity, badge color classes, and the two icon color tokens used in
// icon-only contexts. Not part of the transition logic.
type StatusDisplay struct {
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	IconColor   string `json:"iconColor"`
	IconBgColor string `json:"iconBgColor"`
}

var statusDisplays = map[OrderStatus]StatusDisplay{
	StatusPending: {
		Label:       "Pending",
		Icon:        "clock",
		Color:       "bg-amber-100 text-amber-800",
		IconColor:   "text-amber-600 dark:text-amber-400",
		IconBgColor: "bg-amber-100 dark:bg-amber-900/30",
	},
	StatusPaid: {
		Label:       "Paid",
		Icon:        "credit-card",
		Color:       "bg-green-100 text-green-800",
		IconColor:   "text-emerald-600 dark:text-emerald-400",
		IconBgColor: "bg-emerald-100 dark:bg-emerald-900/30",
	},
	StatusShipped: {
		Label:       "Shipped",
		Icon:        "truck",
		Color:       "bg-blue-100 text-blue-800",
		IconColor:   "text-blue-600 dark:text-blue-400",
		IconBgColor: "bg-blue-100 dark:bg-blue-900/30",
	},
	StatusDelivered: {
		Label:       "Delivered",
		Icon:        "package",
		Color:       "bg-zinc-100 text-zinc-800",
		IconColor:   "text-emerald-600 dark:text-emerald-400",
		IconBgColor: "bg-emerald-100 dark:bg-emerald-900/30",
	},
	StatusCancelled: {
		Label:       "Cancelled",
		Icon:        "x-circle",
		Color:       "bg-red-100 text-red-800",
		IconColor:   "text-red-600 dark:text-red-400",
		IconBgColor: "bg-red-100 dark:bg-red-900/30",
	},
}

// Display returns the presentation config, falling back to pending for an
// absent or unknown status.
func (s OrderStatus) Display() StatusDisplay {
	return statusDisplays[s.Normalize()]
}
