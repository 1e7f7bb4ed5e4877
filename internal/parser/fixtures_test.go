package parser

const mockTimelineRaw = `{
  "result": {
    "dailytimeline": {
      "days": {
        "2026-02-09": {
          "data": [
            {"id": "checkin", "subtitle": "08:15 - 16:30"},
            {"id": "nap", "subtitle": "1 h and 30 min"},
            {
              "id": "food_1",
              "details": {
                "food": {
                  "meals": [
                    {"type": "md", "percent": 80, "menus": [{"name": "Cereal"}], "totals": {"kcal": 200, "weight": 150}},
                    {"type": "mp", "percent": 90, "menus": [{"name": "Chicken soup"}], "totals": {"kcal": 400, "weight": 300}},
                    {"type": "g", "percent": 70, "menus": [{"name": "Apple"}], "totals": {"kcal": 100, "weight": 80}}
                  ]
                }
              }
            }
          ]
        },
        "2026-02-10": {"data": []},
        "2026-02-11": {"data": []},
        "2026-02-12": {"data": []},
        "2026-02-13": {"data": []}
      }
    }
  }
}`

const mockNewsfeedRaw = `{
  "result": {
    "feed": [
      {
        "id": 37736,
        "type": "invoice",
        "user": {"first_name": "Happy", "last_name": "Kids"},
        "date_friendly": "20 February 2026 at 09:12",
        "content": {
          "title": "Invoice GH018654",
          "subtitle1": "Due Date: 28.02.2026",
          "subtitle2": "380 EUR",
          "description": ""
        }
      },
      {
        "id": 37973,
        "type": "gallery",
        "user": {"first_name": "Maria", "last_name": "Pop"},
        "date_friendly": "19 February 2026 at 15:40",
        "content": {
          "title": "Carnival",
          "description": "Photos from today",
          "gallery": [{"url": "https://cdn.example.com/1.jpg"}, {"url": "https://cdn.example.com/2.jpg"}]
        }
      },
      {
        "id": "wall-1",
        "type": "text",
        "user": {"first_name": "John", "last_name": "Doe"},
        "date_friendly": "1 February 2026 at 10:00",
        "latest_comments": [{"text": "thanks!"}],
        "content": {
          "type": "wall_post",
          "title": "",
          "description": "Hello everyone, welcome!",
          "video": {"url": "https://cdn.example.com/v.mp4"}
        }
      }
    ]
  }
}`
