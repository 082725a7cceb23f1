package sqlinline

// Content already billed by a generation debit is never handed to a second run.
const QSelectLatestContentSince = `--sql 25fc5a9c-431c-43d4-bc5b-8bd7c02f1d72
select c.id, c.owner_id, coalesce(c.workflow_id::text, ''), c.type, c.status, c.media_url, c.error_message, c.created_at
from generated_content c
where c.owner_id = $1::uuid
  and (c.workflow_id is null or c.workflow_id = $2::uuid)
  and c.created_at >= $3::timestamptz
  and not exists (
      select 1 from credit_transactions t
      where t.content_id = c.id and t.type = 'generation'
  )
order by c.created_at desc
limit 1;
`
