package http

import (
	"errors"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
)

var errAdminOnly = errors.New("admin role required")

// buildSchema creates the read-only GraphQL schema. Booking and dashboard
// fields need an admin token; trip fields hide seat holders from everyone
// else.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"from": &graphql.Field{Type: graphql.String},
			"to":   &graphql.Field{Type: graphql.String},
		},
	})

	vehicleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Vehicle",
		Fields: graphql.Fields{
			"id":                  &graphql.Field{Type: graphql.String},
			"name":                &graphql.Field{Type: graphql.String},
			"type":                &graphql.Field{Type: graphql.String},
			"total_seats":         &graphql.Field{Type: graphql.Int},
			"registration_number": &graphql.Field{Type: graphql.String},
			"route":               &graphql.Field{Type: routeType},
			"is_active":           &graphql.Field{Type: graphql.Boolean},
		},
	})

	seatType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Seat",
		Fields: graphql.Fields{
			"seat_number":  &graphql.Field{Type: graphql.Int},
			"is_booked":    &graphql.Field{Type: graphql.Boolean},
			"booked_by":    &graphql.Field{Type: graphql.String},
			"booking_type": &graphql.Field{Type: graphql.String},
			"booking_ref":  &graphql.Field{Type: graphql.String},
		},
	})

	tripType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trip",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"vehicle_id": &graphql.Field{Type: graphql.String},
			"vehicle":    &graphql.Field{Type: vehicleType},
			"driver_id":  &graphql.Field{Type: graphql.String},
			"route":      &graphql.Field{Type: routeType},
			"departure_date": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if t, ok := p.Source.(domain.Trip); ok {
						return t.DateKey(), nil
					}
					return nil, nil
				},
			},
			"departure_time":     &graphql.Field{Type: graphql.String},
			"status":             &graphql.Field{Type: graphql.String},
			"seats":              &graphql.Field{Type: graphql.NewList(seatType)},
			"fare":               &graphql.Field{Type: graphql.Float},
			"total_revenue":      &graphql.Field{Type: graphql.Float},
			"booked_seats_count": &graphql.Field{Type: graphql.Int},
			"free_seats": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if t, ok := p.Source.(domain.Trip); ok {
						return t.FreeSeats(), nil
					}
					return nil, nil
				},
			},
			"version": &graphql.Field{Type: graphql.Int},
		},
	})

	customerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Customer",
		Fields: graphql.Fields{
			"name":  &graphql.Field{Type: graphql.String},
			"email": &graphql.Field{Type: graphql.String},
			"phone": &graphql.Field{Type: graphql.String},
		},
	})

	paymentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Payment",
		Fields: graphql.Fields{
			"amount":         &graphql.Field{Type: graphql.Float},
			"method":         &graphql.Field{Type: graphql.String},
			"status":         &graphql.Field{Type: graphql.String},
			"transaction_id": &graphql.Field{Type: graphql.String},
		},
	})

	bookingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Booking",
		Fields: graphql.Fields{
			"id":                &graphql.Field{Type: graphql.String},
			"trip_id":           &graphql.Field{Type: graphql.String},
			"customer":          &graphql.Field{Type: customerType},
			"seat_numbers":      &graphql.Field{Type: graphql.NewList(graphql.Int)},
			"status":            &graphql.Field{Type: graphql.String},
			"pickup_location":   &graphql.Field{Type: graphql.String},
			"payment":           &graphql.Field{Type: paymentType},
			"rejection_reason":  &graphql.Field{Type: graphql.String},
			"admin_notes":       &graphql.Field{Type: graphql.String},
			"unavailable_seats": &graphql.Field{Type: graphql.NewList(graphql.Int)},
			"created_at":        &graphql.Field{Type: graphql.DateTime},
		},
	})

	countType := graphql.NewObject(graphql.ObjectConfig{
		Name: "KeyedValue",
		Fields: graphql.Fields{
			"key":   &graphql.Field{Type: graphql.String},
			"value": &graphql.Field{Type: graphql.Float},
		},
	})

	dashboardType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DashboardStats",
		Fields: graphql.Fields{
			"date":                   &graphql.Field{Type: graphql.String},
			"total_revenue":          &graphql.Field{Type: graphql.Float},
			"occupancy_rate":         &graphql.Field{Type: graphql.Float},
			"pending_bookings_count": &graphql.Field{Type: graphql.Int},
			"today_bookings_count":   &graphql.Field{Type: graphql.Int},
			"total_trips":            &graphql.Field{Type: graphql.Int},
			"revenue_by_vehicle_type": &graphql.Field{
				Type: graphql.NewList(countType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					s, _ := p.Source.(*domain.DashboardStats)
					if s == nil {
						return nil, nil
					}
					return keyed(s.RevenueByVehicleType), nil
				},
			},
			"trips_by_status": &graphql.Field{
				Type: graphql.NewList(countType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					s, _ := p.Source.(*domain.DashboardStats)
					if s == nil {
						return nil, nil
					}
					m := make(map[string]float64, len(s.TripsByStatus))
					for k, v := range s.TripsByStatus {
						m[k] = float64(v)
					}
					return keyed(m), nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"availableTrips": &graphql.Field{
				Type:        graphql.NewList(tripType),
				Description: "Bookable trips, optionally for one date (YYYY-MM-DD) and direction",
				Args: graphql.FieldConfigArgument{
					"date": &graphql.ArgumentConfig{Type: graphql.String},
					"from": &graphql.ArgumentConfig{Type: graphql.String},
					"to":   &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					date, err := dateArg(p.Args)
					if err != nil {
						return nil, err
					}
					from, _ := p.Args["from"].(string)
					to, _ := p.Args["to"].(string)
					trips, err := deps.Trips.ListAvailableTrips(p.Context, date, from, to)
					if err != nil {
						return nil, err
					}
					if !isAdmin(p.Context) {
						for i := range trips {
							trips[i] = trips[i].Public()
						}
					}
					return trips, nil
				},
			},
			"trip": &graphql.Field{
				Type:        tripType,
				Description: "Get a trip by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					t, err := deps.Trips.GetTrip(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					if !isAdmin(p.Context) {
						return t.Public(), nil
					}
					return *t, nil
				},
			},
			"bookings": &graphql.Field{
				Type:        graphql.NewList(bookingType),
				Description: "Bookings newest first (admin)",
				Args: graphql.FieldConfigArgument{
					"status":  &graphql.ArgumentConfig{Type: graphql.String},
					"trip_id": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if !isAdmin(p.Context) {
						return nil, errAdminOnly
					}
					status, _ := p.Args["status"].(string)
					tripID, _ := p.Args["trip_id"].(string)
					return deps.Bookings.ListBookings(p.Context, ports.BookingFilter{
						Status: domain.BookingStatus(status),
						TripID: tripID,
					})
				},
			},
			"dashboard": &graphql.Field{
				Type:        dashboardType,
				Description: "Operational summary for a day, default today (admin)",
				Args: graphql.FieldConfigArgument{
					"date": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					if !isAdmin(p.Context) {
						return nil, errAdminOnly
					}
					date, err := dateArg(p.Args)
					if err != nil {
						return nil, err
					}
					asOf := deps.now()
					if date != nil {
						asOf = date.Add(12 * time.Hour)
					}
					return deps.Dashboard.Stats(p.Context, asOf)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

type keyedValue struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

func keyed(m map[string]float64) []keyedValue {
	out := make([]keyedValue, 0, len(m))
	for k, v := range m {
		out = append(out, keyedValue{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func dateArg(args map[string]any) (*time.Time, error) {
	raw, _ := args["date"].(string)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return nil, domain.ValidationError{Field: "date", Msg: "must be YYYY-MM-DD"}
	}
	return &d, nil
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil || req.Query == "" {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})
		return c.JSON(result)
	}
}
