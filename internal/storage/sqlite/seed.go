package sqlite

import (
	"database/sql"
	"log"
	"time"

	"complaintbot/internal/domain"
)

type seedComplaint struct {
	draft        domain.ComplaintDraft
	status       string
	adminComment string
}

// SeedDemoData loads a demo dataset into an empty database so the analytics
// and dictionary endpoints have something to show on a fresh install. A
// non-empty database is left untouched.
func SeedDemoData(db *sql.DB) error {
	count, err := CountComplaints(db)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	inserted := 0
	for _, sc := range seedComplaints() {
		c, err := InsertComplaint(db, sc.draft)
		if err != nil {
			return err
		}
		if sc.status != domain.StatusPending || sc.adminComment != "" {
			if err := UpdateComplaintStatus(db, c.Reference, sc.status, sc.adminComment, ""); err != nil {
				return err
			}
		}
		inserted++
	}
	log.Printf("seeded %d demo complaints", inserted)
	return nil
}

func seedTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic("bad seed timestamp: " + value)
	}
	return ts
}

func seedComplaints() []seedComplaint {
	return []seedComplaint{
		{
			draft: domain.ComplaintDraft{
				Description: "Автобус №12 прибыл с опозданием на 20 минут, освещение в салоне не работало.",
				Priority:    domain.PriorityMedium,
				Tuples: []domain.Tuple{{
					Objects: []domain.TupleObject{{Type: domain.ObjectRoute, Value: "12"}},
					Time:    "2025-02-01T08:20:00+05:00",
					Place:   &domain.TuplePlace{Kind: domain.PlaceStop, Value: "Остановка «Самал-2»"},
					Aspects: []string{"punctuality", "condition"},
				}},
				Contact:        &domain.Contact{Name: "Айбек Касымов", Phone: "+7 705 123 45 67"},
				Source:         "web",
				SubmissionTime: seedTime("2025-02-01T08:45:00+05:00"),
				ReportedTime:   seedTime("2025-02-01T08:20:00+05:00"),
				Status:         domain.StatusPending,
			},
			status: domain.StatusPending,
		},
		{
			draft: domain.ComplaintDraft{
				Description: "Водитель маршрута 31 отказался принять оплату картой и разговаривал грубо.",
				Priority:    domain.PriorityHigh,
				Tuples: []domain.Tuple{{
					Objects: []domain.TupleObject{
						{Type: domain.ObjectRoute, Value: "31"},
						{Type: domain.ObjectBusPlate, Value: "123ABZ01"},
					},
					Time:    "2025-01-28T19:05:00+05:00",
					Place:   &domain.TuplePlace{Kind: domain.PlaceStop, Value: "Остановка «Сарыарка»"},
					Aspects: []string{"payment", "staff"},
				}},
				IsAnonymous:    true,
				Source:         "telegram",
				SubmissionTime: seedTime("2025-01-28T19:15:00+05:00"),
				ReportedTime:   seedTime("2025-01-28T19:05:00+05:00"),
			},
			status:       domain.StatusApproved,
			adminComment: "Связались с перевозчиком, проведена беседа с водителем.",
		},
		{
			draft: domain.ComplaintDraft{
				Description: "На маршруте 7 кондиционер не работает, температура в салоне выше 30 градусов.",
				Priority:    domain.PriorityMedium,
				Tuples: []domain.Tuple{{
					Objects: []domain.TupleObject{{Type: domain.ObjectRoute, Value: "7"}},
					Time:    "2025-01-26T14:40:00+05:00",
					Place:   &domain.TuplePlace{Kind: domain.PlaceStreet, Value: "проспект Туран"},
					Aspects: []string{"condition"},
				}},
				Contact:        &domain.Contact{Name: "Жанар Абдрахманова", Email: "zhanar.abd@example.com"},
				Source:         "web",
				SubmissionTime: seedTime("2025-01-26T15:05:00+05:00"),
				ReportedTime:   seedTime("2025-01-26T14:40:00+05:00"),
			},
			status:       domain.StatusResolved,
			adminComment: "Кондиционер заменён, измерения температуры в норме.",
		},
		{
			draft: domain.ComplaintDraft{
				Description: "Автобус 52 ехал с открытой дверью, создавая угрозу безопасности.",
				Priority:    domain.PriorityCritical,
				Tuples: []domain.Tuple{{
					Objects: []domain.TupleObject{{Type: domain.ObjectRoute, Value: "52"}},
					Time:    "2025-02-02T18:10:00+05:00",
					Place:   &domain.TuplePlace{Kind: domain.PlaceStreet, Value: "ул. Мәңгілік Ел, 40"},
					Aspects: []string{"safety"},
				}},
				Contact:        &domain.Contact{Name: "Елена Мирошниченко", Phone: "+7 707 555 23 11"},
				Source:         "web",
				SubmissionTime: seedTime("2025-02-02T18:25:00+05:00"),
				ReportedTime:   seedTime("2025-02-02T18:10:00+05:00"),
			},
			status: domain.StatusPending,
		},
		{
			draft: domain.ComplaintDraft{
				Description: "В трамвае T1 не работает оповещение остановок, сложно ориентироваться.",
				Priority:    domain.PriorityLow,
				Tuples: []domain.Tuple{{
					Objects: []domain.TupleObject{{Type: domain.ObjectRoute, Value: "T1"}},
					Time:    "2025-01-24T21:10:00+05:00",
					Place:   &domain.TuplePlace{Kind: domain.PlaceStop, Value: "Станция «Expo»"},
					Aspects: []string{"condition", "other"},
				}},
				IsAnonymous:    true,
				Source:         "telegram",
				SubmissionTime: seedTime("2025-01-24T21:18:00+05:00"),
				ReportedTime:   seedTime("2025-01-24T21:10:00+05:00"),
			},
			status: domain.StatusPending,
		},
		{
			draft: domain.ComplaintDraft{
				Description: "Маршрут 47 утром переполнен, двери закрываются, оставляя пассажиров.",
				Priority:    domain.PriorityHigh,
				Tuples: []domain.Tuple{{
					Objects: []domain.TupleObject{{Type: domain.ObjectRoute, Value: "47"}},
					Time:    "2025-01-27T08:00:00+05:00",
					Place:   &domain.TuplePlace{Kind: domain.PlaceStop, Value: "Остановка «Назарбаев Университет»"},
					Aspects: []string{"crowding", "safety"},
				}},
				Contact:        &domain.Contact{Name: "Мадина Исаева", Phone: "+7 705 908 43 22"},
				Source:         "web",
				SubmissionTime: seedTime("2025-01-27T08:25:00+05:00"),
				ReportedTime:   seedTime("2025-01-27T08:00:00+05:00"),
			},
			status:       domain.StatusApproved,
			adminComment: "Запланировано усиление смены с 29.01, ведётся мониторинг нагрузки.",
		},
		{
			draft: domain.ComplaintDraft{
				Description: "Маршрут 3 из-за пробки объезжает улицу и не предупреждает заранее.",
				Priority:    domain.PriorityMedium,
				Tuples: []domain.Tuple{{
					Objects: []domain.TupleObject{{Type: domain.ObjectRoute, Value: "3"}},
					Time:    "2025-01-31T08:20:00+05:00",
					Place:   &domain.TuplePlace{Kind: domain.PlaceStreet, Value: "проспект Бейбитшилик"},
					Aspects: []string{"staff", "other"},
				}},
				IsAnonymous:    true,
				Source:         "telegram",
				SubmissionTime: seedTime("2025-01-31T08:28:00+05:00"),
				ReportedTime:   seedTime("2025-01-31T08:20:00+05:00"),
			},
			status:       domain.StatusRejected,
			adminComment: "Видео подтвердило временное перекрытие, водитель высадил пассажиров заранее.",
		},
	}
}
