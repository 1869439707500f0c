package mcpserver

// MeetingFormatContract describes the meeting payload that LLM consumers
// should follow when creating meetings.
const MeetingFormatContract = `# meetbook Meeting Format Contract

A meeting is created with the add_meeting tool and returned by every read tool
in the denormalized view shape below.

## Creating

| Field        | Type            | Rules |
|--------------|-----------------|-------|
| agenda       | string          | REQUIRED, non-blank after trimming |
| related      | string          | REQUIRED, one of "Contact" or "Lead" |
| dateTime     | string          | REQUIRED, "2006-01-02T15:04", "2006-01-02T15:04:05" or RFC 3339 |
| attendes     | array of string | OPTIONAL, contact ids (24 hex chars); used when related = Contact |
| attendesLead | array of string | OPTIONAL, lead ids (24 hex chars); used when related = Lead |
| location     | string          | OPTIONAL |
| notes        | string          | OPTIONAL |

The creator is always the identity the server runs as; it cannot be supplied.

## Reading

` + "```" + `json
{
  "_id": "6650f0c2a1b2c3d4e5f60718",
  "agenda": "Quarterly review",
  "location": "HQ",
  "related": "Contact",
  "dateTime": "2026-11-02T09:30",
  "notes": "",
  "timestamp": "2026-10-01T12:00:00Z",
  "createdByName": "Ada Lovelace",
  "attendes": [{"_id": "6650f0c2a1b2c3d4e5f60719", "email": "client@example.com"}],
  "attendesLead": []
}
` + "```" + `

## Rules

1. Attendee ids that do not resolve to a contact or lead are silently dropped from views.
2. createdByName is "Unknown" when the creating user no longer exists.
3. Deleting is a soft delete: the meeting disappears from every read tool but is kept in storage.
4. Non-admin identities only list and delete their own meetings.
`
