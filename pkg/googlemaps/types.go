package googlemaps

// Wire schemas. Coordinates are pointers so a missing field can be told apart
// from a genuine 0.

type latLng struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (l *latLng) valid() bool {
	return l != nil && l.Lat != nil && l.Lng != nil
}

type geometry struct {
	Location *latLng `json:"location"`
}

type placeResult struct {
	PlaceID          string    `json:"place_id"`
	Name             string    `json:"name"`
	Vicinity         string    `json:"vicinity"`
	FormattedAddress string    `json:"formatted_address"`
	Geometry         *geometry `json:"geometry"`
	Rating           float64   `json:"rating"`
	UserRatingsTotal int       `json:"user_ratings_total"`
	BusinessStatus   string    `json:"business_status"`
	Types            []string  `json:"types"`
}

func (p *placeResult) location() (lat, lng float64, ok bool) {
	if p.Geometry == nil || !p.Geometry.Location.valid() {
		return 0, 0, false
	}
	return *p.Geometry.Location.Lat, *p.Geometry.Location.Lng, true
}

type nearbySearchResponse struct {
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message"`
	Results       []placeResult `json:"results"`
	NextPageToken string        `json:"next_page_token"`
}

type structuredFormatting struct {
	MainText      string `json:"main_text"`
	SecondaryText string `json:"secondary_text"`
}

type prediction struct {
	PlaceID              string                `json:"place_id"`
	Description          string                `json:"description"`
	StructuredFormatting *structuredFormatting `json:"structured_formatting"`
}

type autocompleteResponse struct {
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message"`
	Predictions  []prediction `json:"predictions"`
}

type placeDetailsResponse struct {
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message"`
	Result       *placeResult `json:"result"`
}

type textValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type directionsLeg struct {
	Distance textValue `json:"distance"`
	Duration textValue `json:"duration"`
}

type directionsRoute struct {
	Legs             []directionsLeg `json:"legs"`
	OverviewPolyline struct {
		Points string `json:"points"`
	} `json:"overview_polyline"`
}

type directionsResponse struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message"`
	Routes       []directionsRoute `json:"routes"`
}
