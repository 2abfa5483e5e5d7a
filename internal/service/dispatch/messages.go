package dispatch

// Fixed assistant copy.
const (
	Greeting         = "Hello! I'm your Lead-to-Lease Concierge. Let's get started."
	UnitGenerated    = "✅ Your Unit Id is generated."
	BookingPrompt    = "Do you want to book your tour? If yes, please confirm with 'book'."
	BookingSucceeded = "✅ Your booking request has been received. An email has been sent with the tour details. Thank you!"
	BookingFailed    = "❌ Something went wrong while booking your tour. Please try again later."
	GenericFailure   = "Oops, something went wrong. Please try again."
	NoResponse       = "No response."
)
